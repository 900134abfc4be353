package catalogrepo

import (
	"errors"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
)

var ErrNotFound = errors.New("catalog entry not found")

type ListRequest struct {
	Kind    models.Kind
	OwnerID int64
	// AssignedOnly keeps entries referenced by at least one of the owner's recipes.
	AssignedOnly bool
}
