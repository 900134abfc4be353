package server

import (
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
)

type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type EntryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RecipeResponse is the list view of a recipe.
type RecipeResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"` //nolint:tagliatelle
	Price       models.Price    `json:"price"`
	Link        string          `json:"link"`
	Tags        []EntryResponse `json:"tags"`
	Ingredients []EntryResponse `json:"ingredients"`
}

// RecipeDetailResponse adds the fields only the single-recipe endpoints show.
type RecipeDetailResponse struct {
	RecipeResponse
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

type ImageResponse struct {
	ID    int64   `json:"id"`
	Image *string `json:"image"`
}

func userResponse(u models.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name}
}

func entryResponses(entries []models.CatalogEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{ID: e.ID, Name: e.Name})
	}

	return out
}

func recipeResponse(r models.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        entryResponses(r.Tags),
		Ingredients: entryResponses(r.Ingredients),
	}
}

func recipeResponses(recipes []models.Recipe) []RecipeResponse {
	out := make([]RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, recipeResponse(r))
	}

	return out
}

func (s *Server) recipeDetail(r models.Recipe) RecipeDetailResponse {
	return RecipeDetailResponse{
		RecipeResponse: recipeResponse(r),
		Description:    r.Description,
		Image:          s.imageURL(r.Image),
	}
}

// imageURL is nil for recipes without an image.
func (s *Server) imageURL(path string) *string {
	if path == "" {
		return nil
	}

	u := s.cfg.MediaURL + path

	return &u
}
