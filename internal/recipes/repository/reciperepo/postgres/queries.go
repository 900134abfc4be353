package postgres

import (
	"context"
	"fmt"

	"github.com/Leopold1975/recipes_control/internal/pkg/pgtools"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	repo "github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
	"github.com/Masterminds/squirrel"
)

var recipeColumns = []string{
	"r.id", "r.user_id", "r.title", "r.description", "r.time_minutes", "r.price", "r.link", "COALESCE(r.image, '')",
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func listRecipesQuery(req repo.ListRequest) squirrel.SelectBuilder {
	sb := psql().Select(recipeColumns...).
		From("recipes r").
		Where(squirrel.Eq{"r.user_id": req.OwnerID})

	// Subqueries rather than joins so a recipe matching several ids is returned once.
	if len(req.TagIDs) != 0 {
		sb = sb.Where("r.id IN (SELECT recipe_id FROM recipe_tags WHERE tag_id = ANY(?))", req.TagIDs)
	}

	if len(req.IngredientIDs) != 0 {
		sb = sb.Where("r.id IN (SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id = ANY(?))",
			req.IngredientIDs)
	}

	return sb.OrderBy("r.id DESC")
}

func entriesQuery(kind models.Kind, recipeIDs []int64) squirrel.SelectBuilder {
	return psql().Select("rel.recipe_id", "e.id", "e.user_id", "e.name").
		From(kind.JoinTable() + " rel").
		Join(kind.Table() + " e ON e.id = rel." + kind.JoinColumn()).
		Where(squirrel.Eq{"rel.recipe_id": recipeIDs}).
		OrderBy("e.id ASC")
}

func scanRecipes(ctx context.Context, q pgtools.Querier, sb squirrel.SelectBuilder) ([]models.Recipe, error) {
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	recipes := make([]models.Recipe, 0, 10) //nolint:gomnd

	for rows.Next() {
		var r models.Recipe

		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Title, &r.Description,
			&r.TimeMinutes, &r.Price, &r.Link, &r.Image); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		recipes = append(recipes, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return recipes, nil
}

// loadEntries fills Tags and Ingredients of every recipe in place.
func loadEntries(ctx context.Context, q pgtools.Querier, recipes []models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]int64, len(recipes))
	index := make(map[int64]int, len(recipes))

	for i, r := range recipes {
		ids[i] = r.ID
		index[r.ID] = i
		recipes[i].Tags = []models.CatalogEntry{}
		recipes[i].Ingredients = []models.CatalogEntry{}
	}

	for _, kind := range []models.Kind{models.KindTag, models.KindIngredient} {
		query, args, err := entriesQuery(kind, ids).ToSql()
		if err != nil {
			return fmt.Errorf("to sql error: %w", err)
		}

		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query %s error: %w", kind, err)
		}

		for rows.Next() {
			var (
				recipeID int64
				e        models.CatalogEntry
			)

			if err := rows.Scan(&recipeID, &e.ID, &e.OwnerID, &e.Name); err != nil {
				rows.Close()

				return fmt.Errorf("scan error: %w", err)
			}

			i := index[recipeID]
			recipes[i].SetEntries(kind, append(recipes[i].Entries(kind), e))
		}

		rows.Close()

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
	}

	return nil
}

func getRecipe(ctx context.Context, q pgtools.Querier, ownerID, id int64) (models.Recipe, error) {
	sb := psql().Select(recipeColumns...).
		From("recipes r").
		Where(squirrel.Eq{"r.id": id, "r.user_id": ownerID})

	recipes, err := scanRecipes(ctx, q, sb)
	if err != nil {
		return models.Recipe{}, err
	}

	if len(recipes) == 0 {
		return models.Recipe{}, repo.ErrNotFound
	}

	if err := loadEntries(ctx, q, recipes); err != nil {
		return models.Recipe{}, err
	}

	return recipes[0], nil
}

func execAffecting(ctx context.Context, q pgtools.Querier, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}
