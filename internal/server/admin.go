package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dvcrn/bank-api-client/internal/credentials"
)

// adminMiddleware checks for the admin API key from either
// 'Authorization: Bearer <key>' or 'X-API-Key: <key>' headers.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With().Str("method", r.Method).Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Logger()

		if s.adminKey == "" {
			log.Warn().Msg("ADMIN_API_KEY not set, admin endpoints disabled")
			http.Error(w, "Admin API not configured", http.StatusServiceUnavailable)
			return
		}

		var providedToken string
		authHeader := r.Header.Get("Authorization")
		xAPIKeyHeader := r.Header.Get("X-API-Key")

		switch {
		case authHeader != "":
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn().Msg("Invalid Authorization header format for admin endpoint")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			providedToken = parts[1]
		case xAPIKeyHeader != "":
			providedToken = xAPIKeyHeader
		default:
			log.Warn().Msg("Missing Authorization or X-API-Key header for admin endpoint")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if providedToken != s.adminKey {
			log.Warn().Msg("Invalid admin API key provided")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		log.Debug().Msg("Admin request authorized")
		next(w, r)
	}
}

// credentialsHandler handles POST /admin/credentials. The body has the same
// shape as the persisted session record.
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	var session credentials.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		s.log.Error().Err(err).Msg("Failed to decode credentials request")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !session.Credential.Valid() {
		http.Error(w, "credential.access_token is required", http.StatusBadRequest)
		return
	}

	if err := s.auth.Restore(r.Context(), session.Credential, session.Principal); err != nil {
		s.log.Error().Err(err).Msg("Failed to save credentials")
		http.Error(w, "Failed to save credentials", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Credentials saved successfully",
	})
}

// credentialsStatusHandler handles GET /admin/credentials/status.
func (s *Server) credentialsStatusHandler(w http.ResponseWriter, r *http.Request) {
	cred, _, err := s.store.Get(r.Context())

	response := map[string]any{
		"type":           "bearer",
		"hasCredentials": err == nil && cred.Valid(),
		"store":          s.store.Name(),
		"state":          s.auth.State().String(),
	}

	if err == nil && cred.Valid() {
		isExpired := false
		if exp, ok := cred.Expiry(); ok {
			isExpired = time.Now().After(exp)
			response["expires_at"] = cred.ExpiresAt
			response["expires_at_formatted"] = exp.Format(time.RFC3339)
		}
		response["is_expired"] = isExpired
		response["has_refresh_token"] = cred.RefreshToken != ""
	} else if err != nil {
		response["error"] = err.Error()
	}

	writeJSON(w, http.StatusOK, response)
}

// refreshHandler handles POST /admin/credentials/refresh.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
