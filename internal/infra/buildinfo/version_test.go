package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("Get() = %+v, want every field set", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestString(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })
	Version = "v9.9.9"

	s := String()
	if !strings.HasPrefix(s, "v9.9.9 (") || !strings.Contains(s, "built at") {
		t.Errorf("String() = %q", s)
	}
}

func TestUserAgent(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })
	Version = "v1.2.3"

	if got := UserAgent("qrtoken-cli"); !strings.HasPrefix(got, "qrtoken-cli/v1.2.3 (") {
		t.Errorf("UserAgent() = %q", got)
	}
}
