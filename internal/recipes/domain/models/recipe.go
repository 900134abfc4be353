package models

type Recipe struct {
	ID          int64          `json:"id"`
	OwnerID     int64          `json:"-"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	TimeMinutes int            `json:"time_minutes"` //nolint:tagliatelle
	Price       Price          `json:"price"`
	Link        string         `json:"link"`
	Tags        []CatalogEntry `json:"tags"`
	Ingredients []CatalogEntry `json:"ingredients"`
	Image       string         `json:"image,omitempty"`
}

// Entries returns the relation of r for kind k.
func (r Recipe) Entries(k Kind) []CatalogEntry {
	if k == KindIngredient {
		return r.Ingredients
	}

	return r.Tags
}

func (r *Recipe) SetEntries(k Kind, entries []CatalogEntry) {
	if k == KindIngredient {
		r.Ingredients = entries
	} else {
		r.Tags = entries
	}
}
