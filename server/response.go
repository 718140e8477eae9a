package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/resolve"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps a resolution or storage error to its HTTP status
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.IsValidationError(err), errors.Is(err, errors.ErrUnknownScorer), errors.Is(err, errors.ErrNoCandidates):
		return http.StatusBadRequest
	case errors.IsAmbiguousMatchError(err):
		return http.StatusForbidden
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsConflictError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// readJSON reads and decodes a JSON request body
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return err
	}
	return nil
}

// requireMethods checks if the request method matches one of the expected methods
func requireMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, method := range methods {
		if r.Method == method {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// entityPayload flattens an entity into its wire form: the attributes plus
// the record fields. Reserved attribute keys guarantee no collision.
func entityPayload(e *entity.Entity) map[string]interface{} {
	payload := make(map[string]interface{}, len(e.Attributes)+4)
	for k, v := range e.Attributes {
		payload[k] = v
	}
	payload["uuid"] = e.UUID
	payload["domain"] = e.Domain
	payload["alias_for"] = e.AliasFor
	payload["superseded_by"] = e.SupersededBy
	return payload
}

// resultPayload is the envelope every resolution endpoint responds with
func resultPayload(res *resolve.Result) map[string]interface{} {
	return map[string]interface{}{
		"entity":      entityPayload(res.Entity),
		"created":     res.Created,
		"aliased":     res.Aliased,
		"match_score": res.Score,
	}
}
