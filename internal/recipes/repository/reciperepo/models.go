package reciperepo

import (
	"context"
	"errors"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
)

var ErrNotFound = errors.New("recipe not found")

type ListRequest struct {
	OwnerID int64
	// TagIDs and IngredientIDs keep recipes referencing any of the ids. Empty means no filter.
	TagIDs        []int64
	IngredientIDs []int64
}

// Tx is the unit of work a recipe write runs in. Everything done through it
// commits or rolls back together.
type Tx interface {
	CreateRecipe(ctx context.Context, r models.Recipe) (int64, error)
	UpdateRecipe(ctx context.Context, r models.Recipe) error
	GetRecipe(ctx context.Context, ownerID, id int64) (models.Recipe, error)

	FindEntries(ctx context.Context, kind models.Kind, ownerID int64, names []string) ([]models.CatalogEntry, error)
	CreateEntry(ctx context.Context, kind models.Kind, ownerID int64, name string) (models.CatalogEntry, error)

	AttachedIDs(ctx context.Context, kind models.Kind, recipeID int64) ([]int64, error)
	Attach(ctx context.Context, kind models.Kind, recipeID int64, ids []int64) error
	Detach(ctx context.Context, kind models.Kind, recipeID int64, ids []int64) error
}
