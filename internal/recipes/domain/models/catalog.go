package models

// Kind selects one of the two catalogs a recipe can reference.
type Kind int

const (
	KindTag Kind = iota + 1
	KindIngredient
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindIngredient:
		return "ingredient"
	default:
		return "unknown"
	}
}

func (k Kind) Valid() bool {
	return k == KindTag || k == KindIngredient
}

// Table is the catalog table for k.
func (k Kind) Table() string {
	if k == KindIngredient {
		return "ingredients"
	}

	return "tags"
}

// JoinTable is the recipe relation table for k.
func (k Kind) JoinTable() string {
	if k == KindIngredient {
		return "recipe_ingredients"
	}

	return "recipe_tags"
}

// JoinColumn references Table from JoinTable.
func (k Kind) JoinColumn() string {
	if k == KindIngredient {
		return "ingredient_id"
	}

	return "tag_id"
}

// CatalogEntry is a Tag or an Ingredient. Both have the same shape and are
// owned by exactly one user.
type CatalogEntry struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"-"`
	Name    string `json:"name"`
}
