package server

import (
	"fmt"
	"net/http"

	"github.com/Leopold1975/recipes_control/internal/pkg/validate"
	"github.com/Leopold1975/recipes_control/internal/recipes/api/oapi"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
)

type entryRequest struct {
	Name *string `json:"name"`
}

// (GET /tags).
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request, params oapi.ListTagsParams) {
	s.listEntries(w, r, models.KindTag, params.AssignedOnly)
}

// (POST /tags).
func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request) {
	s.createEntry(w, r, models.KindTag)
}

// (GET /tags/{id}).
func (s *Server) GetTag(w http.ResponseWriter, r *http.Request, id int64) {
	s.getEntry(w, r, models.KindTag, id)
}

// (PUT /tags/{id}).
func (s *Server) PutTag(w http.ResponseWriter, r *http.Request, id int64) {
	s.updateEntry(w, r, models.KindTag, id, false)
}

// (PATCH /tags/{id}).
func (s *Server) PatchTag(w http.ResponseWriter, r *http.Request, id int64) {
	s.updateEntry(w, r, models.KindTag, id, true)
}

// (DELETE /tags/{id}).
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request, id int64) {
	s.deleteEntry(w, r, models.KindTag, id)
}

// (GET /ingredients).
func (s *Server) ListIngredients(w http.ResponseWriter, r *http.Request, params oapi.ListIngredientsParams) {
	s.listEntries(w, r, models.KindIngredient, params.AssignedOnly)
}

// (POST /ingredients).
func (s *Server) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	s.createEntry(w, r, models.KindIngredient)
}

// (GET /ingredients/{id}).
func (s *Server) GetIngredient(w http.ResponseWriter, r *http.Request, id int64) {
	s.getEntry(w, r, models.KindIngredient, id)
}

// (PUT /ingredients/{id}).
func (s *Server) PutIngredient(w http.ResponseWriter, r *http.Request, id int64) {
	s.updateEntry(w, r, models.KindIngredient, id, false)
}

// (PATCH /ingredients/{id}).
func (s *Server) PatchIngredient(w http.ResponseWriter, r *http.Request, id int64) {
	s.updateEntry(w, r, models.KindIngredient, id, true)
}

// (DELETE /ingredients/{id}).
func (s *Server) DeleteIngredient(w http.ResponseWriter, r *http.Request, id int64) {
	s.deleteEntry(w, r, models.KindIngredient, id)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request, kind models.Kind, assignedOnly *int) {
	entries, err := s.catalogService.List(r.Context(), kind, callerFrom(r.Context()).ID,
		assignedOnly != nil && *assignedOnly != 0)
	if err != nil {
		s.fail(w, fmt.Errorf("list %s error: %w", kind, err))

		return
	}

	writeJSON(w, http.StatusOK, entryResponses(entries))
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request, kind models.Kind) {
	var req entryRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	if req.Name == nil {
		s.fail(w, missing("name"))

		return
	}

	e, err := s.catalogService.Create(r.Context(), kind, callerFrom(r.Context()).ID, *req.Name)
	if err != nil {
		s.fail(w, fmt.Errorf("create %s error: %w", kind, err))

		return
	}

	writeJSON(w, http.StatusCreated, EntryResponse{ID: e.ID, Name: e.Name})
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request, kind models.Kind, id int64) {
	e, err := s.catalogService.Get(r.Context(), kind, callerFrom(r.Context()).ID, id)
	if err != nil {
		s.fail(w, fmt.Errorf("get %s error: %w", kind, err))

		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{ID: e.ID, Name: e.Name})
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request, kind models.Kind, id int64, partial bool) {
	var req entryRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	if !partial && req.Name == nil {
		s.fail(w, missing("name"))

		return
	}

	e, err := s.catalogService.Update(r.Context(), kind, callerFrom(r.Context()).ID, id, req.Name)
	if err != nil {
		s.fail(w, fmt.Errorf("update %s error: %w", kind, err))

		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{ID: e.ID, Name: e.Name})
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request, kind models.Kind, id int64) {
	if err := s.catalogService.Delete(r.Context(), kind, callerFrom(r.Context()).ID, id); err != nil {
		s.fail(w, fmt.Errorf("delete %s error: %w", kind, err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func missing(field string) validate.Errors {
	ve := validate.Errors{}
	ve.Missing(field)

	return ve
}
