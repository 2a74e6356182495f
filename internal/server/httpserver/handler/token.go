package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/internal/core/service"
)

// MaxTTLSeconds is the largest ttl_seconds that fits a time.Duration.
const MaxTTLSeconds = math.MaxInt64 / int64(time.Second)

// handleIssueToken handles POST /v1/users/{user_id}/tokens.
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req IssueTokenRequest
	if !h.decodeBody(w, r, &req, true) {
		return
	}
	if req.TTLSeconds < 0 {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code, "ttl_seconds must not be negative")
		return
	}
	if req.TTLSeconds > MaxTTLSeconds {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code,
			"ttl_seconds must not exceed "+strconv.FormatInt(MaxTTLSeconds, 10))
		return
	}

	var opts []service.GenerateOption
	if req.Label != "" {
		opts = append(opts, service.WithLabel(req.Label))
	}
	if req.TTLSeconds > 0 {
		opts = append(opts, service.WithTTL(time.Duration(req.TTLSeconds)*time.Second))
	}

	issued, err := h.tokens.IssueToken(r.Context(), userID, opts...)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, IssueTokenResponse{
		ID:        issued.Info.ID,
		QRText:    issued.QRText,
		Label:     issued.Info.Label,
		CreatedAt: issued.Info.CreatedAt,
		ExpiresAt: issued.Info.ExpiresAt,
	})
}

// handleListTokens handles GET /v1/users/{user_id}/tokens.
// ?include_inactive=true adds revoked and expired records.
func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	includeInactive := false
	if v := r.URL.Query().Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code, "include_inactive must be a boolean")
			return
		}
		includeInactive = b
	}

	tokens, err := h.tokens.ListUserTokens(r.Context(), userID, includeInactive)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ListTokensResponse{Tokens: tokens, Count: len(tokens)})
}

// handleRevokeTokenByID handles DELETE /v1/users/{user_id}/tokens/{id}.
func (h *Handler) handleRevokeTokenByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	revoked, err := h.tokens.RevokeTokenByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, RevokeResponse{Revoked: revoked})
}

// handleRevokeAllTokens handles POST /v1/users/{user_id}/tokens/revoke.
func (h *Handler) handleRevokeAllTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	n, err := h.tokens.RevokeAllUserTokens(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, RevokeAllResponse{Revoked: n})
}

func (h *Handler) readQR(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req QRRequest
	if !h.decodeBody(w, r, &req, false) {
		return "", false
	}
	if req.QRText == "" {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrMissingArgument.Code, "qr_text is required")
		return "", false
	}
	return req.QRText, true
}

// handleValidateToken handles POST /v1/tokens/validate. A rejected token is
// a 200 with valid=false and the error kind.
func (h *Handler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readQR(w, r)
	if !ok {
		return
	}
	res, err := h.tokens.ValidateToken(r.Context(), text)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ValidateTokenResponse{Valid: res.Valid, Error: res.Kind.String()})
}

// handleResolveToken handles POST /v1/tokens/resolve. Every failure is the
// same 404 so callers cannot tell damaged, unknown and revoked tokens apart.
func (h *Handler) handleResolveToken(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readQR(w, r)
	if !ok {
		return
	}
	userID, found, err := h.tokens.ResolveTokenToUser(r.Context(), h.tokens.ExtractTokenFromQR(text))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !found {
		h.writeError(w, r, http.StatusNotFound, domain.ErrTokenExpired.Code, domain.ErrTokenExpired.Message)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ResolveTokenResponse{UserID: userID.String()})
}

// handleRevokeToken handles POST /v1/tokens/revoke.
func (h *Handler) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readQR(w, r)
	if !ok {
		return
	}
	revoked, err := h.tokens.RevokeToken(r.Context(), h.tokens.ExtractTokenFromQR(text))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, RevokeResponse{Revoked: revoked})
}
