package server

import (
	"net/http"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/storage"
)

// handleEntities lists a domain's entities filtered by query parameters
// (GET) or creates one directly from a raw attribute mapping (POST).
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	domain := r.PathValue("slug")
	if _, err := s.domains.GetBySlug(r.Context(), domain); err != nil {
		writeServiceError(w, err)
		return
	}

	if r.Method == http.MethodGet {
		// Query parameters act as an exact-value containment filter
		filter := entity.Attributes{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				filter[key] = values[0]
			}
		}
		found, err := s.entities.Find(r.Context(), domain, filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		payload := make([]map[string]interface{}, len(found))
		for i := range found {
			payload[i] = entityPayload(&found[i])
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	var attrs entity.Attributes
	if readJSON(w, r, &attrs) != nil {
		return
	}
	attrs = attrs.Clone()
	explicitUUID := attrs.PopUUID()
	if err := attrs.Validate(); err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := s.entities.Create(r.Context(), storage.CreateParams{
		Domain:     domain,
		UUID:       explicitUUID,
		Attributes: attrs,
		CreatedBy:  createdBy(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entityPayload(created))
}

// handleEntity serves one entity by UUID: GET, PATCH (attribute merge), or
// DELETE.
func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete) {
		return
	}
	domain := r.PathValue("slug")
	id := r.PathValue("uuid")

	e, err := s.entities.GetByUUID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if e.Domain != domain {
		writeServiceError(w, errors.NewNotFoundError("entity %q not found in domain %q", id, domain))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, entityPayload(e))

	case http.MethodPatch:
		var partial entity.Attributes
		if readJSON(w, r, &partial) != nil {
			return
		}
		if err := partial.Validate(); err != nil {
			writeServiceError(w, err)
			return
		}
		updated, err := s.entities.UpdateAttributes(r.Context(), id, partial)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entityPayload(updated))

	case http.MethodDelete:
		if err := s.entities.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
