package server

import (
	"net/http"
	"time"

	"github.com/The-Politico/crosswalk/entity"
)

type domainPayload struct {
	Slug    string    `json:"slug"`
	Name    string    `json:"name"`
	Parent  *string   `json:"parent"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

func toDomainPayload(d *entity.Domain) domainPayload {
	return domainPayload{
		Slug:    d.Slug,
		Name:    d.Name,
		Parent:  d.Parent,
		Created: d.Created,
		Updated: d.Updated,
	}
}

// handleDomains lists domains (GET) or creates one (POST)
func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		domains, err := s.domains.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		payload := make([]domainPayload, len(domains))
		for i := range domains {
			payload[i] = toDomainPayload(&domains[i])
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	var req struct {
		Name   string  `json:"name"`
		Parent *string `json:"parent"`
	}
	if readJSON(w, r, &req) != nil {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Domain name is required")
		return
	}

	created, err := s.domains.Create(r.Context(), req.Name, req.Parent, createdBy(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDomainPayload(created))
}

// handleDomain serves a single domain by slug
func (s *Server) handleDomain(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet) {
		return
	}

	d, err := s.domains.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDomainPayload(d))
}

// handleHealth serves the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// handleClientCheck confirms the caller's token resolves to an API user.
// Reaching here at all means auth passed.
func (s *Server) handleClientCheck(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet) {
		return
	}
	payload := map[string]interface{}{"ok": true}
	if name := username(r); name != nil {
		payload["user"] = *name
	}
	writeJSON(w, http.StatusOK, payload)
}
