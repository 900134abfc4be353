package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leopold1975/recipes_control/internal/pkg/pgtools"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	repo "github.com/Leopold1975/recipes_control/internal/recipes/repository/catalogrepo"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogPostgresRepo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) CatalogPostgresRepo {
	return CatalogPostgresRepo{
		db: db,
	}
}

func (cr CatalogPostgresRepo) CreateEntry(ctx context.Context, kind models.Kind,
	entry models.CatalogEntry,
) (models.CatalogEntry, error) {
	e, err := NewQueries(cr.db).Create(ctx, kind, entry.OwnerID, entry.Name)
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("create %s error: %w", kind, err)
	}

	return e, nil
}

func (cr CatalogPostgresRepo) GetEntry(ctx context.Context, kind models.Kind,
	ownerID, id int64,
) (models.CatalogEntry, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "user_id", "name").
		From(kind.Table()).
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).ToSql()
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("to sql error: %w", err)
	}

	var e models.CatalogEntry

	if err := cr.db.QueryRow(ctx, query, args...).Scan(&e.ID, &e.OwnerID, &e.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CatalogEntry{}, repo.ErrNotFound
		}

		return models.CatalogEntry{}, fmt.Errorf("scan error: %w", err)
	}

	return e, nil
}

func (cr CatalogPostgresRepo) ListEntries(ctx context.Context, req repo.ListRequest) ([]models.CatalogEntry, error) {
	query, args, err := listQuery(req.Kind, req.OwnerID, req.AssignedOnly).ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	entries, err := NewQueries(cr.db).scan(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list %s error: %w", req.Kind, err)
	}

	return entries, nil
}

func (cr CatalogPostgresRepo) UpdateEntry(ctx context.Context, kind models.Kind,
	entry models.CatalogEntry,
) (err error) {
	tx, err := cr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update(kind.Table()).
		Set("name", entry.Name).
		Where(squirrel.Eq{"id": entry.ID, "user_id": entry.OwnerID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func (cr CatalogPostgresRepo) DeleteEntry(ctx context.Context, kind models.Kind, ownerID, id int64) (err error) {
	tx, err := cr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete(kind.Table()).
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}
