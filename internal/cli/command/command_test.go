package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/qrtoken-go/internal/cli/connection"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/server/httpserver"
	"github.com/yndnr/qrtoken-go/internal/storage/memory"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
	"github.com/yndnr/qrtoken-go/pkg/crypto/adaptive"
)

// newTestServer runs the real router over an in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	sealer, err := adaptive.NewSealer(bytes.Repeat([]byte{0x21}, 32))
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	m, err := service.NewTokenManager(memory.New(), service.DefaultTokenManagerConfig(),
		bytes.Repeat([]byte{0x12}, 32),
		service.WithLogger(logger.Nop()),
		service.WithLabelSealer(sealer),
	)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{Tokens: m}))
	t.Cleanup(srv.Close)
	return srv
}

// runCLI runs the app against server with stdin and returns its output.
func runCLI(t *testing.T, server, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"qrtoken-cli", "--server", server}, args...))
	return out.String(), err
}

func runJSON(t *testing.T, server, stdin string, target any, args ...string) {
	t.Helper()
	out, err := runCLI(t, server, stdin, append([]string{"-o", "json"}, args...)...)
	if err != nil {
		t.Fatalf("%v: error = %v\n%s", args, err, out)
	}
	if err := json.Unmarshal([]byte(out), target); err != nil {
		t.Fatalf("%v: decode %q: %v", args, out, err)
	}
}

func TestTokenCommands_Lifecycle(t *testing.T) {
	srv := newTestServer(t)

	var issued issuedToken
	runJSON(t, srv.URL, "", &issued, "token", "issue", "--label", "front door", "alice")
	if issued.QRText == "" || issued.Label != "front door" {
		t.Fatalf("issue = %+v", issued)
	}

	var v validation
	runJSON(t, srv.URL, "", &v, "token", "validate", issued.QRText)
	if !v.Valid {
		t.Errorf("validate = %+v, want valid", v)
	}

	var r resolution
	runJSON(t, srv.URL, issued.QRText+"\n", &r, "token", "resolve", "-")
	if r.UserID != "alice" {
		t.Errorf("resolve = %+v, want alice", r)
	}

	out, err := runCLI(t, srv.URL, "", "token", "list", "alice")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, issued.ID) || !strings.Contains(out, "front door") || !strings.Contains(out, "Total: 1 tokens") {
		t.Errorf("list output:\n%s", out)
	}
	if strings.Contains(out, issued.QRText) {
		t.Error("list output contains the QR text")
	}

	var rv revocation
	runJSON(t, srv.URL, "", &rv, "token", "revoke", issued.QRText)
	if !rv.Revoked {
		t.Error("first revoke = false")
	}
	runJSON(t, srv.URL, "", &rv, "token", "revoke", "--user", "alice", issued.ID)
	if rv.Revoked {
		t.Error("revoke by id after revoke = true")
	}

	runJSON(t, srv.URL, "", &v, "token", "validate", issued.QRText)
	if v.Valid || v.Error != "EXPIRED_TOKEN" {
		t.Errorf("validate after revoke = %+v", v)
	}

	_, err = runCLI(t, srv.URL, "", "token", "resolve", issued.QRText)
	if !connection.IsCode(err, "QT-TOKN-4011") {
		t.Errorf("resolve after revoke error = %v, want QT-TOKN-4011", err)
	}

	var page tokenPage
	runJSON(t, srv.URL, "", &page, "token", "list", "--all", "alice")
	if page.Count != 1 || page.Tokens[0].State != "revoked" {
		t.Errorf("list --all = %+v", page)
	}
}

func TestTokenRevokeAll_Confirmation(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 2; i++ {
		if _, err := runCLI(t, srv.URL, "", "token", "issue", "bob"); err != nil {
			t.Fatalf("issue error = %v", err)
		}
	}

	out, err := runCLI(t, srv.URL, "nope\n", "token", "revoke-all", "bob")
	if err != nil {
		t.Fatalf("revoke-all error = %v", err)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("output = %q, want cancellation", out)
	}

	out, err = runCLI(t, srv.URL, "bob\n", "-o", "json", "token", "revoke-all", "bob")
	if err != nil {
		t.Fatalf("revoke-all error = %v", err)
	}
	if !strings.Contains(out, `"revoked": 2`) {
		t.Errorf("output = %q, want 2 revoked", out)
	}

	var bulk bulkRevocation
	runJSON(t, srv.URL, "", &bulk, "token", "revoke-all", "--force", "bob")
	if bulk.Revoked != 0 {
		t.Errorf("second revoke-all = %d, want 0", bulk.Revoked)
	}
}

func TestTokenCommands_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"issue without user", []string{"token", "issue"}, "user ID required"},
		{"validate without text", []string{"token", "validate"}, "QR text required"},
		{"bad output", []string{"-o", "xml", "token", "list", "alice"}, "unknown output format"},
		{"sub-second ttl", []string{"token", "issue", "--ttl", "10ms", "alice"}, "ttl must be at least 1s"},
		{"bad user id", []string{"token", "list", "a:b"}, "QT-USER-4001"},
		{"bad token id", []string{"token", "revoke", "--user", "alice", "nope"}, "QT-ARG-1001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, srv.URL, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	srv := newTestServer(t)
	out, err := runCLI(t, srv.URL, "", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "yes") {
		t.Errorf("status output:\n%s", out)
	}

	srv.Close()
	if _, err := runCLI(t, srv.URL, "", "status"); !errors.Is(err, errNotReady) {
		t.Errorf("status against closed server error = %v, want errNotReady", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "localhost:1", "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "qrtoken-cli ") {
		t.Errorf("version output = %q", out)
	}
}
