package catalogservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Leopold1975/recipes_control/internal/pkg/validate"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	repo "github.com/Leopold1975/recipes_control/internal/recipes/repository/catalogrepo"
	"github.com/Leopold1975/recipes_control/pkg/logger"
)

const maxNameLen = 255

var ErrNotFound = errors.New("not found")

// CatalogService serves tags and ingredients. Every call is scoped to ownerID.
type CatalogService struct {
	catalogRepo Repository
	lg          logger.Logger
}

type Repository interface {
	CreateEntry(context.Context, models.Kind, models.CatalogEntry) (models.CatalogEntry, error)
	GetEntry(ctx context.Context, kind models.Kind, ownerID, id int64) (models.CatalogEntry, error)
	ListEntries(context.Context, repo.ListRequest) ([]models.CatalogEntry, error)
	UpdateEntry(context.Context, models.Kind, models.CatalogEntry) error
	DeleteEntry(ctx context.Context, kind models.Kind, ownerID, id int64) error
}

func New(catalogRepo Repository, lg logger.Logger) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		lg:          lg,
	}
}

// ValidateName checks a tag or ingredient name.
func ValidateName(name string) validate.Errors {
	ve := validate.Errors{}
	ve.Text("name", name, true, maxNameLen)

	return ve
}

func (cs *CatalogService) List(ctx context.Context, kind models.Kind, ownerID int64,
	assignedOnly bool,
) ([]models.CatalogEntry, error) {
	if err := check(kind, ownerID); err != nil {
		return nil, err
	}

	entries, err := cs.catalogRepo.ListEntries(ctx, repo.ListRequest{
		Kind:         kind,
		OwnerID:      ownerID,
		AssignedOnly: assignedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s error: %w", kind, err)
	}

	return entries, nil
}

func (cs *CatalogService) Get(ctx context.Context, kind models.Kind, ownerID, id int64) (models.CatalogEntry, error) {
	if err := check(kind, ownerID); err != nil {
		return models.CatalogEntry{}, err
	}

	e, err := cs.catalogRepo.GetEntry(ctx, kind, ownerID, id)
	if err != nil {
		return models.CatalogEntry{}, translate(kind, "get", err)
	}

	return e, nil
}

func (cs *CatalogService) Create(ctx context.Context, kind models.Kind, ownerID int64,
	name string,
) (models.CatalogEntry, error) {
	if err := check(kind, ownerID); err != nil {
		return models.CatalogEntry{}, err
	}

	if err := ValidateName(name).Err(); err != nil {
		return models.CatalogEntry{}, err
	}

	e, err := cs.catalogRepo.CreateEntry(ctx, kind, models.CatalogEntry{OwnerID: ownerID, Name: strings.TrimSpace(name)})
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("create %s error: %w", kind, err)
	}

	return e, nil
}

// Update renames an entry. A nil name keeps the current one (empty PATCH).
func (cs *CatalogService) Update(ctx context.Context, kind models.Kind, ownerID, id int64,
	name *string,
) (models.CatalogEntry, error) {
	if err := check(kind, ownerID); err != nil {
		return models.CatalogEntry{}, err
	}

	if name == nil {
		return cs.Get(ctx, kind, ownerID, id)
	}

	if err := ValidateName(*name).Err(); err != nil {
		return models.CatalogEntry{}, err
	}

	e := models.CatalogEntry{ID: id, OwnerID: ownerID, Name: strings.TrimSpace(*name)}

	if err := cs.catalogRepo.UpdateEntry(ctx, kind, e); err != nil {
		return models.CatalogEntry{}, translate(kind, "update", err)
	}

	return e, nil
}

func (cs *CatalogService) Delete(ctx context.Context, kind models.Kind, ownerID, id int64) error {
	if err := check(kind, ownerID); err != nil {
		return err
	}

	if err := cs.catalogRepo.DeleteEntry(ctx, kind, ownerID, id); err != nil {
		return translate(kind, "delete", err)
	}

	cs.lg.Infof("%s %d deleted by user %d", kind, id, ownerID)

	return nil
}

func check(kind models.Kind, ownerID int64) error {
	if ownerID <= 0 {
		return models.ErrOwnerRequired
	}

	if !kind.Valid() {
		return fmt.Errorf("unknown catalog kind %d", kind)
	}

	return nil
}

func translate(kind models.Kind, op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}

	return fmt.Errorf("%s %s error: %w", op, kind, err)
}
