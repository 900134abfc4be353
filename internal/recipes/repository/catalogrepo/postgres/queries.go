package postgres

import (
	"context"
	"fmt"

	"github.com/Leopold1975/recipes_control/internal/pkg/pgtools"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Masterminds/squirrel"
)

// Queries runs the catalog statements on a pool or inside a transaction.
type Queries struct {
	q pgtools.Querier
}

func NewQueries(q pgtools.Querier) Queries {
	return Queries{q: q}
}

// FindByNames returns ownerID's entries whose name is one of names, lowest id first.
func (qs Queries) FindByNames(ctx context.Context, kind models.Kind, ownerID int64,
	names []string,
) ([]models.CatalogEntry, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query, args, err := findByNamesQuery(kind, ownerID, names).ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	return qs.scan(ctx, query, args)
}

func (qs Queries) Create(ctx context.Context, kind models.Kind, ownerID int64,
	name string,
) (models.CatalogEntry, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert(kind.Table()).
		Columns("user_id", "name").
		Values(ownerID, name).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("to sql error: %w", err)
	}

	e := models.CatalogEntry{OwnerID: ownerID, Name: name}

	if err := qs.q.QueryRow(ctx, query, args...).Scan(&e.ID); err != nil {
		return models.CatalogEntry{}, fmt.Errorf("scan error: %w", err)
	}

	return e, nil
}

func (qs Queries) scan(ctx context.Context, query string, args []interface{}) ([]models.CatalogEntry, error) {
	rows, err := qs.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	entries := make([]models.CatalogEntry, 0, 10) //nolint:gomnd

	for rows.Next() {
		var e models.CatalogEntry

		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

func findByNamesQuery(kind models.Kind, ownerID int64, names []string) squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "user_id", "name").
		From(kind.Table()).
		Where(squirrel.Eq{"user_id": ownerID}).
		Where(squirrel.Eq{"name": names}).
		OrderBy("id ASC")
}

// listQuery always restricts to the owner. In assigned-only mode the join
// through recipes can repeat an entry, hence DISTINCT.
func listQuery(kind models.Kind, ownerID int64, assignedOnly bool) squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	if !assignedOnly {
		return psql.Select("id", "user_id", "name").
			From(kind.Table()).
			Where(squirrel.Eq{"user_id": ownerID}).
			OrderBy("name DESC", "id DESC")
	}

	return psql.Select("e.id", "e.user_id", "e.name").
		Distinct().
		From(kind.Table() + " e").
		Join(kind.JoinTable() + " rel ON rel." + kind.JoinColumn() + " = e.id").
		Join("recipes r ON r.id = rel.recipe_id").
		Where(squirrel.Eq{"e.user_id": ownerID}).
		Where(squirrel.Eq{"r.user_id": ownerID}).
		OrderBy("e.name DESC", "e.id DESC")
}
