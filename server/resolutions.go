package server

import (
	"net/http"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/resolve"
)

// resolutionRequest is the JSON body shared by the resolution endpoints.
// return_canonical defaults to true when omitted. threshold is a pointer so
// an omitted value is distinguishable from an explicit zero.
type resolutionRequest struct {
	QueryField       string            `json:"query_field"`
	QueryValue       string            `json:"query_value"`
	BlockAttrs       entity.Attributes `json:"block_attrs"`
	CreateAttrs      entity.Attributes `json:"create_attrs"`
	UpdateAttrs      entity.Attributes `json:"update_attrs"`
	Threshold        *int              `json:"threshold"`
	Scorer           string            `json:"scorer"`
	ReturnCanonical  *bool             `json:"return_canonical"`
	ReturnSuperseded *bool             `json:"return_superseded"`
}

func (s *Server) readResolutionRequest(w http.ResponseWriter, r *http.Request) (resolve.Request, bool) {
	var body resolutionRequest
	if readJSON(w, r, &body) != nil {
		return resolve.Request{}, false
	}

	req := resolve.Request{
		Domain:             r.PathValue("slug"),
		QueryField:         body.QueryField,
		QueryValue:         body.QueryValue,
		BlockAttrs:         body.BlockAttrs,
		CreateAttrs:        body.CreateAttrs,
		UpdateAttrs:        body.UpdateAttrs,
		Threshold:          body.Threshold,
		Scorer:             body.Scorer,
		ReturnCanonical:    body.ReturnCanonical == nil || *body.ReturnCanonical,
		FollowSupersession: body.ReturnSuperseded != nil && *body.ReturnSuperseded,
		CreatedBy:          createdBy(r),
	}
	return req, true
}

func (s *Server) runResolution(w http.ResponseWriter, r *http.Request,
	op func(*http.Request, resolve.Request) (*resolve.Result, error)) {
	req, ok := s.readResolutionRequest(w, r)
	if !ok {
		return
	}
	res, err := op(r, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resultPayload(res))
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.Match(r.Context(), req)
	})
}

func (s *Server) handleMatchOrCreate(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.MatchOrCreate(r.Context(), req)
	})
}

func (s *Server) handleBestMatch(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.BestMatch(r.Context(), req)
	})
}

func (s *Server) handleBestMatchOrCreate(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.BestMatchOrCreate(r.Context(), req)
	})
}

func (s *Server) handleAliasOrCreate(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.AliasOrCreate(r.Context(), req)
	})
}

func (s *Server) handleCreateMatchedAlias(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.CreateMatchedAlias(r.Context(), req)
	})
}

func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	s.runResolution(w, r, func(r *http.Request, req resolve.Request) (*resolve.Result, error) {
		return s.service.UpdateMatch(r.Context(), req)
	})
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readResolutionRequest(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteMatch(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Entities []entity.Attributes `json:"entities"`
		Force    bool                `json:"force"`
	}
	if readJSON(w, r, &body) != nil {
		return
	}
	if len(body.Entities) == 0 {
		writeError(w, http.StatusBadRequest, "No entities to create")
		return
	}

	created, err := s.service.BulkCreate(r.Context(), r.PathValue("slug"), body.Entities, createdBy(r), body.Force)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]map[string]interface{}, len(created))
	for i := range created {
		payload[i] = entityPayload(&created[i])
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"entities": payload,
		"created":  len(payload),
	})
}
