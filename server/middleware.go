package server

import (
	"net/http"
	"strings"

	"github.com/The-Politico/crosswalk/errors"
)

// corsMiddleware adds CORS headers for configured allowed origins and
// answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// authMiddleware requires an "Authorization: Token <token>" header that
// resolves to a known API user. Disabled entirely by server.auth_enabled.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del("X-Crosswalk-User")
		r.Header.Del("X-Crosswalk-User-ID")
		if !s.cfg.Server.AuthEnabled {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Token ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}

		user, err := s.users.GetByToken(r.Context(), token)
		if err != nil {
			if errors.IsNotFoundError(err) {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}

		r.Header.Set("X-Crosswalk-User", user.Username)
		r.Header.Set("X-Crosswalk-User-ID", user.ID)
		next(w, r)
	}
}

// createdBy extracts the authenticated user's ID set by authMiddleware.
// Store rows reference api_users by ID, so this is what created_by columns
// receive.
func createdBy(r *http.Request) *string {
	if id := r.Header.Get("X-Crosswalk-User-ID"); id != "" {
		return &id
	}
	return nil
}

// username extracts the authenticated username set by authMiddleware.
func username(r *http.Request) *string {
	if name := r.Header.Get("X-Crosswalk-User"); name != "" {
		return &name
	}
	return nil
}
