package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Leopold1975/recipes_control/internal/recipes/api/oapi"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/recipeservice"
)

const imageField = "image"

// (GET /recipes).
func (s *Server) ListRecipes(w http.ResponseWriter, r *http.Request, params oapi.ListRecipesParams) {
	var req recipeservice.ListRequest

	if params.Tags != nil {
		req.TagIDs = *params.Tags
	}

	if params.Ingredients != nil {
		req.IngredientIDs = *params.Ingredients
	}

	recipes, err := s.recipeService.List(r.Context(), callerFrom(r.Context()).ID, req)
	if err != nil {
		s.fail(w, fmt.Errorf("list recipes error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, recipeResponses(recipes))
}

// (POST /recipes).
func (s *Server) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.RecipeRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	recipe, err := s.recipeService.Create(r.Context(), callerFrom(r.Context()).ID, req)
	if err != nil {
		s.fail(w, fmt.Errorf("create recipe error: %w", err))

		return
	}

	writeJSON(w, http.StatusCreated, s.recipeDetail(recipe))
}

// (GET /recipes/{id}).
func (s *Server) GetRecipe(w http.ResponseWriter, r *http.Request, id int64) {
	recipe, err := s.recipeService.Get(r.Context(), callerFrom(r.Context()).ID, id)
	if err != nil {
		s.fail(w, fmt.Errorf("get recipe error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, s.recipeDetail(recipe))
}

// (PUT /recipes/{id}).
func (s *Server) PutRecipe(w http.ResponseWriter, r *http.Request, id int64) {
	s.updateRecipe(w, r, id, false)
}

// (PATCH /recipes/{id}).
func (s *Server) PatchRecipe(w http.ResponseWriter, r *http.Request, id int64) {
	s.updateRecipe(w, r, id, true)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request, id int64, partial bool) {
	var req recipeservice.RecipeRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	recipe, err := s.recipeService.Update(r.Context(), callerFrom(r.Context()).ID, id, req, partial)
	if err != nil {
		s.fail(w, fmt.Errorf("update recipe error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, s.recipeDetail(recipe))
}

// (DELETE /recipes/{id}).
func (s *Server) DeleteRecipe(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.recipeService.Delete(r.Context(), callerFrom(r.Context()).ID, id); err != nil {
		s.fail(w, fmt.Errorf("delete recipe error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// (POST /recipes/{id}/image).
func (s *Server) UploadRecipeImage(w http.ResponseWriter, r *http.Request, id int64) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		var me *http.MaxBytesError
		if errors.As(err, &me) {
			s.fail(w, fmt.Errorf("%w: limit is %d bytes", errTooLarge, me.Limit))

			return
		}

		s.fail(w, fmt.Errorf("%w: %w", errMalformedBody, err))

		return
	}

	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	var up recipeservice.Upload

	file, header, err := r.FormFile(imageField)

	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		s.fail(w, fmt.Errorf("%w: %w", errMalformedBody, err))

		return
	default:
		defer file.Close()

		up = recipeservice.Upload{Filename: header.Filename, Size: header.Size, Body: file}
	}

	recipe, err := s.recipeService.UploadImage(r.Context(), callerFrom(r.Context()).ID, id, up)
	if err != nil {
		s.fail(w, fmt.Errorf("upload image error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, ImageResponse{ID: recipe.ID, Image: s.imageURL(recipe.Image)})
}
