package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/home-panel-core/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	AccessToken string `json:"access_token"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleLogin exchanges the shared dashboard access token for a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := auth.VerifyAccessToken(req.AccessToken, s.secCfg.AccessToken); err != nil {
		s.logger.Warn("login rejected", "remote", r.RemoteAddr)
		writeUnauthorized(w, "invalid access token")
		return
	}

	signed, err := auth.GenerateAccessToken(s.secCfg.JWT.Secret, s.secCfg.JWT.ExpireDays)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	expireDays := s.secCfg.JWT.ExpireDays
	if expireDays <= 0 {
		expireDays = auth.DefaultExpireDays
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64((time.Duration(expireDays) * 24 * time.Hour).Seconds()),
	})
}

// handleAuthMe reports the authenticated session, mainly so the dashboard
// can tell a stale token from a dead backend.
func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "no session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject":    claims.Subject,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
	})
}
