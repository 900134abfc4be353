package postgres

import (
	"context"
	"fmt"

	"github.com/Leopold1975/recipes_control/internal/pkg/pgtools"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	catalogpg "github.com/Leopold1975/recipes_control/internal/recipes/repository/catalogrepo/postgres"
	repo "github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RecipesPostgresRepo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) RecipesPostgresRepo {
	return RecipesPostgresRepo{
		db: db,
	}
}

func (rr RecipesPostgresRepo) ListRecipes(ctx context.Context, req repo.ListRequest) ([]models.Recipe, error) {
	recipes, err := scanRecipes(ctx, rr.db, listRecipesQuery(req))
	if err != nil {
		return nil, err
	}

	if err := loadEntries(ctx, rr.db, recipes); err != nil {
		return nil, err
	}

	return recipes, nil
}

func (rr RecipesPostgresRepo) GetRecipe(ctx context.Context, ownerID, id int64) (models.Recipe, error) {
	return getRecipe(ctx, rr.db, ownerID, id)
}

func (rr RecipesPostgresRepo) DeleteRecipe(ctx context.Context, ownerID, id int64) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete")
	}()

	return execAffecting(ctx, tx, psql().Delete("recipes").
		Where(squirrel.Eq{"id": id, "user_id": ownerID}))
}

func (rr RecipesPostgresRepo) SetImage(ctx context.Context, ownerID, id int64, path string) error {
	return execAffecting(ctx, rr.db, psql().Update("recipes").
		Set("image", path).
		Where(squirrel.Eq{"id": id, "user_id": ownerID}))
}

// Atomic runs fn in a single transaction.
func (rr RecipesPostgresRepo) Atomic(ctx context.Context, fn func(repo.Tx) error) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "atomic")
	}()

	return fn(txStore{tx: tx, catalog: catalogpg.NewQueries(tx)})
}

type txStore struct {
	tx      pgx.Tx
	catalog catalogpg.Queries
}

func (s txStore) CreateRecipe(ctx context.Context, r models.Recipe) (int64, error) {
	query, args, err := psql().Insert("recipes").
		Columns("user_id", "title", "description", "time_minutes", "price", "link").
		Values(r.OwnerID, r.Title, r.Description, r.TimeMinutes, r.Price, r.Link).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("to sql error: %w", err)
	}

	var id int64

	if err := s.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("scan error: %w", err)
	}

	return id, nil
}

func (s txStore) UpdateRecipe(ctx context.Context, r models.Recipe) error {
	return execAffecting(ctx, s.tx, psql().Update("recipes").
		Set("title", r.Title).
		Set("description", r.Description).
		Set("time_minutes", r.TimeMinutes).
		Set("price", r.Price).
		Set("link", r.Link).
		Where(squirrel.Eq{"id": r.ID, "user_id": r.OwnerID}))
}

func (s txStore) GetRecipe(ctx context.Context, ownerID, id int64) (models.Recipe, error) {
	return getRecipe(ctx, s.tx, ownerID, id)
}

func (s txStore) FindEntries(ctx context.Context, kind models.Kind, ownerID int64,
	names []string,
) ([]models.CatalogEntry, error) {
	return s.catalog.FindByNames(ctx, kind, ownerID, names)
}

func (s txStore) CreateEntry(ctx context.Context, kind models.Kind, ownerID int64,
	name string,
) (models.CatalogEntry, error) {
	return s.catalog.Create(ctx, kind, ownerID, name)
}

func (s txStore) AttachedIDs(ctx context.Context, kind models.Kind, recipeID int64) ([]int64, error) {
	query, args, err := psql().Select(kind.JoinColumn()).
		From(kind.JoinTable()).
		Where(squirrel.Eq{"recipe_id": recipeID}).
		OrderBy(kind.JoinColumn()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect rows error: %w", err)
	}

	return ids, nil
}

// Attach inserts the relation rows; pairs already present are left alone.
func (s txStore) Attach(ctx context.Context, kind models.Kind, recipeID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ib := psql().Insert(kind.JoinTable()).Columns("recipe_id", kind.JoinColumn())
	for _, id := range ids {
		ib = ib.Values(recipeID, id)
	}

	query, args, err := ib.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err := s.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}

func (s txStore) Detach(ctx context.Context, kind models.Kind, recipeID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := psql().Delete(kind.JoinTable()).
		Where(squirrel.Eq{"recipe_id": recipeID, kind.JoinColumn(): ids}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err := s.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}
