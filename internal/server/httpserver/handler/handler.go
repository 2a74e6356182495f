package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// maxBodyBytes caps request bodies. A QR text is under 1 KiB.
const maxBodyBytes = 16 << 10

// TokenService is the part of service.TokenManager the API calls.
type TokenService interface {
	IssueToken(ctx context.Context, userID domain.UserID, opts ...service.GenerateOption) (*service.IssuedToken, error)
	ListUserTokens(ctx context.Context, userID domain.UserID, includeInactive bool) ([]*service.TokenInfo, error)
	RevokeTokenByID(ctx context.Context, userID domain.UserID, id string) (bool, error)
	RevokeAllUserTokens(ctx context.Context, userID domain.UserID) (int, error)
	ValidateToken(ctx context.Context, text string) (*domain.ValidationResult, error)
	ExtractTokenFromQR(text string) *domain.SecureToken
	ResolveTokenToUser(ctx context.Context, tok *domain.SecureToken) (domain.UserID, bool, error)
	RevokeToken(ctx context.Context, tok *domain.SecureToken) (bool, error)
}

// ReadyFunc reports whether dependencies can serve traffic.
type ReadyFunc func(ctx context.Context) error

// Handler serves the token API routes.
type Handler struct {
	tokens TokenService
	ready  ReadyFunc
	log    logger.Logger
	mux    *http.ServeMux
}

// New creates a Handler. ready may be nil.
func New(tokens TokenService, ready ReadyFunc, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		tokens: tokens,
		ready:  ready,
		log:    log,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /v1/users/{user_id}/tokens", h.handleIssueToken)
	h.mux.HandleFunc("GET /v1/users/{user_id}/tokens", h.handleListTokens)
	h.mux.HandleFunc("DELETE /v1/users/{user_id}/tokens/{id}", h.handleRevokeTokenByID)
	h.mux.HandleFunc("POST /v1/users/{user_id}/tokens/revoke", h.handleRevokeAllTokens)

	h.mux.HandleFunc("POST /v1/tokens/validate", h.handleValidateToken)
	h.mux.HandleFunc("POST /v1/tokens/resolve", h.handleResolveToken)
	h.mux.HandleFunc("POST /v1/tokens/revoke", h.handleRevokeToken)
}

// Routes lists the patterns served by Handler, for mounting.
func Routes() []string {
	return []string{
		"GET /health",
		"GET /ready",
		"POST /v1/users/{user_id}/tokens",
		"GET /v1/users/{user_id}/tokens",
		"DELETE /v1/users/{user_id}/tokens/{id}",
		"POST /v1/users/{user_id}/tokens/revoke",
		"POST /v1/tokens/validate",
		"POST /v1/tokens/resolve",
		"POST /v1/tokens/revoke",
	}
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.log.Error("encode response failed", "error", err)
	}
}

// writeError writes an error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, nil))
}

// handleServiceError maps manager errors onto the envelope. Infrastructure
// failures are logged and reported without their cause.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		logger.L(r.Context()).Error("unexpected error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError,
			domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
		return
	}
	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		logger.L(r.Context()).Error("request failed", "code", de.Code, "error", err)
		h.writeError(w, r, status, de.Code, de.Message)
		return
	}
	msg := de.Message
	if de.Details != "" {
		msg += ": " + de.Details
	}
	h.writeError(w, r, status, de.Code, msg)
}

// statusFor maps an error code onto its HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.ErrTokenExpired.Code, domain.ErrTokenNotFound.Code:
		return http.StatusNotFound
	case domain.ErrTokenHashConflict.Code:
		return http.StatusConflict
	case domain.ErrServiceUnavailable.Code:
		return http.StatusServiceUnavailable
	}
	switch {
	case strings.HasPrefix(code, "QT-ARG-"),
		strings.HasPrefix(code, "QT-USER-4"),
		strings.HasPrefix(code, "QT-TOKN-4"),
		code == domain.ErrBadRequest.Code:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body")
	return false
}

// userID parses the {user_id} path value, writing the error response on
// failure.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, err := domain.ParseUserID(r.PathValue("user_id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return "", false
	}
	return id, true
}
