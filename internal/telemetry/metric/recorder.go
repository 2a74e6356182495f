package metric

import "time"

// Revocation modes.
const (
	RevokeModeToken = "token"
	RevokeModeID    = "id"
	RevokeModeUser  = "user"
)

// Recorder receives domain and transport measurements.
type Recorder interface {
	TokenIssued()
	// Validation counts one validation outcome; result is "valid" or an error kind.
	Validation(result string)
	Revoked(mode string, n int)
	Pruned(n int)
	StoreError(op string)
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) TokenIssued()                                   {}
func (Nop) Validation(string)                              {}
func (Nop) Revoked(string, int)                            {}
func (Nop) Pruned(int)                                     {}
func (Nop) StoreError(string)                              {}
func (Nop) HTTPRequest(string, string, int, time.Duration) {}
