package handler

import (
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/service"
)

// Response is the standard API response envelope.
// Every JSON response uses it; /metrics does not.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// IssueTokenRequest is the body of POST /v1/users/{user_id}/tokens.
// Both fields are optional and an empty body is accepted.
type IssueTokenRequest struct {
	Label      string `json:"label,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// IssueTokenResponse carries the QR text. It is the only response that
// contains a raw token value.
type IssueTokenResponse struct {
	ID        string     `json:"id"`
	QRText    string     `json:"qr_text"`
	Label     string     `json:"label,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ListTokensResponse is the body of GET /v1/users/{user_id}/tokens.
type ListTokensResponse struct {
	Tokens []*service.TokenInfo `json:"tokens"`
	Count  int                  `json:"count"`
}

// RevokeResponse reports whether a single revocation changed a record.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// RevokeAllResponse reports how many records a bulk revocation changed.
type RevokeAllResponse struct {
	Revoked int `json:"revoked"`
}

// QRRequest is the body of the endpoints that take a scanned QR text.
type QRRequest struct {
	QRText string `json:"qr_text"`
}

// ValidateTokenResponse never includes the owner.
type ValidateTokenResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ResolveTokenResponse is returned only for active tokens.
type ResolveTokenResponse struct {
	UserID string `json:"user_id"`
}

// StatusResponse is the body of the health endpoints.
type StatusResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
