package domain

// ErrorKind classifies why a QR text did not validate.
//
// There is no "not found" kind. Unknown, revoked and expired tokens all
// report ErrorExpiredToken so a caller cannot probe which values exist.
type ErrorKind string

const (
	ErrorNone               ErrorKind = ""
	ErrorInvalidFormat      ErrorKind = "INVALID_FORMAT"
	ErrorInvalidChecksum    ErrorKind = "INVALID_CHECKSUM"
	ErrorUnsupportedVersion ErrorKind = "UNSUPPORTED_VERSION"
	ErrorExpiredToken       ErrorKind = "EXPIRED_TOKEN"
	ErrorMalformedData      ErrorKind = "MALFORMED_DATA"
)

// String returns the wire name of the kind.
func (k ErrorKind) String() string {
	return string(k)
}

// Err maps the kind onto its DomainError. ErrorNone maps to nil.
func (k ErrorKind) Err() *DomainError {
	switch k {
	case ErrorNone:
		return nil
	case ErrorInvalidFormat:
		return ErrTokenInvalidFormat
	case ErrorMalformedData:
		return ErrTokenMalformed
	case ErrorUnsupportedVersion:
		return ErrTokenUnsupportedVersion
	case ErrorExpiredToken:
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

// ValidationResult is the outcome of validating one QR text.
// Token is set only when Valid is true.
type ValidationResult struct {
	Valid bool
	Kind  ErrorKind
	Token *SecureToken
}

// Invalid builds a failed result.
func Invalid(kind ErrorKind) *ValidationResult {
	return &ValidationResult{Kind: kind}
}

// Valid builds a successful result.
func Valid(tok *SecureToken) *ValidationResult {
	return &ValidationResult{Valid: true, Token: tok}
}
