package recipeservice

import (
	"encoding/json"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
)

type NamePayload struct {
	Name string `json:"name"`
}

// RecipeRequest is the body of create and update calls. Nil fields were absent.
type RecipeRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	TimeMinutes *int            `json:"time_minutes"` //nolint:tagliatelle
	Price       json.RawMessage `json:"price"`
	Link        *string         `json:"link"`
	// Tags and Ingredients replace the recipe's relation when present, even if empty.
	Tags        *[]NamePayload `json:"tags"`
	Ingredients *[]NamePayload `json:"ingredients"`
}

func (r RecipeRequest) payloads(k models.Kind) *[]NamePayload {
	if k == models.KindIngredient {
		return r.Ingredients
	}

	return r.Tags
}

type ListRequest struct {
	TagIDs        []int64
	IngredientIDs []int64
}
