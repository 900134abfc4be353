package recipeservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Leopold1975/recipes_control/internal/pkg/validate"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	repo "github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
	"github.com/Leopold1975/recipes_control/pkg/logger"
)

const maxTextLen = 255

var ErrNotFound = errors.New("recipe not found")

var relationKinds = [...]models.Kind{models.KindTag, models.KindIngredient}

// RecipeService serves recipes of a single owner per call.
type RecipeService struct {
	recipeRepo Repository
	images     ImageStore
	lg         logger.Logger
}

type Repository interface {
	ListRecipes(context.Context, repo.ListRequest) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, ownerID, id int64) (models.Recipe, error)
	DeleteRecipe(ctx context.Context, ownerID, id int64) error
	SetImage(ctx context.Context, ownerID, id int64, path string) error
	Atomic(ctx context.Context, fn func(repo.Tx) error) error
}

type ImageStore interface {
	Save(ctx context.Context, path, contentType string, body io.Reader, size int64) error
}

func New(recipeRepo Repository, images ImageStore, lg logger.Logger) *RecipeService {
	return &RecipeService{
		recipeRepo: recipeRepo,
		images:     images,
		lg:         lg,
	}
}

func (rs *RecipeService) List(ctx context.Context, ownerID int64, req ListRequest) ([]models.Recipe, error) {
	if ownerID <= 0 {
		return nil, models.ErrOwnerRequired
	}

	recipes, err := rs.recipeRepo.ListRecipes(ctx, repo.ListRequest{
		OwnerID:       ownerID,
		TagIDs:        req.TagIDs,
		IngredientIDs: req.IngredientIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("list recipes error: %w", err)
	}

	return recipes, nil
}

func (rs *RecipeService) Get(ctx context.Context, ownerID, id int64) (models.Recipe, error) {
	if ownerID <= 0 {
		return models.Recipe{}, models.ErrOwnerRequired
	}

	r, err := rs.recipeRepo.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return models.Recipe{}, translate("get", err)
	}

	return r, nil
}

// Create inserts the recipe and links its tags and ingredients by name in one transaction.
func (rs *RecipeService) Create(ctx context.Context, ownerID int64, req RecipeRequest) (models.Recipe, error) {
	if ownerID <= 0 {
		return models.Recipe{}, models.ErrOwnerRequired
	}

	price, ve := validateRequest(req, true)
	if err := ve.Err(); err != nil {
		return models.Recipe{}, err
	}

	r := models.Recipe{OwnerID: ownerID}
	apply(&r, req, price)

	var created models.Recipe

	err := rs.recipeRepo.Atomic(ctx, func(tx repo.Tx) error {
		id, err := tx.CreateRecipe(ctx, r)
		if err != nil {
			return fmt.Errorf("insert recipe error: %w", err)
		}

		for _, k := range relationKinds {
			p := req.payloads(k)
			if p == nil {
				continue
			}

			if err := reconcile(ctx, tx, k, ownerID, id, *p, false); err != nil {
				return err
			}
		}

		created, err = tx.GetRecipe(ctx, ownerID, id)

		return err
	})
	if err != nil {
		return models.Recipe{}, fmt.Errorf("create recipe error: %w", err)
	}

	rs.lg.Infof("recipe %d created by user %d", created.ID, ownerID)

	return created, nil
}

// Update changes a recipe. With partial set only present fields are applied,
// otherwise title, time_minutes and price are required. A present relation
// key replaces the relation, an absent one keeps it.
func (rs *RecipeService) Update(ctx context.Context, ownerID, id int64, req RecipeRequest,
	partial bool,
) (models.Recipe, error) {
	if ownerID <= 0 {
		return models.Recipe{}, models.ErrOwnerRequired
	}

	price, ve := validateRequest(req, !partial)
	if err := ve.Err(); err != nil {
		return models.Recipe{}, err
	}

	var updated models.Recipe

	err := rs.recipeRepo.Atomic(ctx, func(tx repo.Tx) error {
		r, err := tx.GetRecipe(ctx, ownerID, id)
		if err != nil {
			return err
		}

		apply(&r, req, price)

		if err := tx.UpdateRecipe(ctx, r); err != nil {
			return err
		}

		for _, k := range relationKinds {
			p := req.payloads(k)
			if p == nil {
				continue
			}

			if err := reconcile(ctx, tx, k, ownerID, id, *p, true); err != nil {
				return err
			}
		}

		updated, err = tx.GetRecipe(ctx, ownerID, id)

		return err
	})
	if err != nil {
		return models.Recipe{}, translate("update", err)
	}

	return updated, nil
}

func (rs *RecipeService) Delete(ctx context.Context, ownerID, id int64) error {
	if ownerID <= 0 {
		return models.ErrOwnerRequired
	}

	if err := rs.recipeRepo.DeleteRecipe(ctx, ownerID, id); err != nil {
		return translate("delete", err)
	}

	rs.lg.Infof("recipe %d deleted by user %d", id, ownerID)

	return nil
}

// apply copies the present fields of an already validated req onto r.
// price is the value parsed by validateRequest, nil when absent.
func apply(r *models.Recipe, req RecipeRequest, price *models.Price) {
	if req.Title != nil {
		r.Title = strings.TrimSpace(*req.Title)
	}

	if req.Description != nil {
		r.Description = *req.Description
	}

	if req.TimeMinutes != nil {
		r.TimeMinutes = *req.TimeMinutes
	}

	if price != nil {
		r.Price = *price
	}

	if req.Link != nil {
		r.Link = strings.TrimSpace(*req.Link)
	}
}

// validateRequest checks req and returns the parsed price when one is present.
func validateRequest(req RecipeRequest, full bool) (*models.Price, validate.Errors) {
	var price *models.Price

	ve := validate.Errors{}

	switch {
	case req.Title != nil:
		ve.Text("title", *req.Title, true, maxTextLen)
	case full:
		ve.Missing("title")
	}

	switch {
	case req.TimeMinutes != nil:
		if *req.TimeMinutes < 0 {
			ve.Add("time_minutes", "Ensure this value is greater than or equal to 0.")
		} else if *req.TimeMinutes > math.MaxInt32 {
			ve.Add("time_minutes", "Ensure this value is less than or equal to 2147483647.")
		}
	case full:
		ve.Missing("time_minutes")
	}

	switch {
	case len(req.Price) > 0 && string(req.Price) != "null":
		var p models.Price
		if err := p.UnmarshalJSON(req.Price); err != nil {
			ve.Add("price", err.Error())
		} else if p < 0 {
			ve.Add("price", "Ensure this value is greater than or equal to 0.")
		} else {
			price = &p
		}
	case len(req.Price) > 0:
		ve.Add("price", "This field may not be null.")
	case full:
		ve.Missing("price")
	}

	if req.Link != nil {
		ve.Text("link", *req.Link, false, maxTextLen)
	}

	for _, k := range relationKinds {
		p := req.payloads(k)
		if p == nil {
			continue
		}

		for i, n := range *p {
			item := validate.Errors{}
			item.Text("name", strings.TrimSpace(n.Name), true, maxTextLen)
			ve.Merge(k.Table()+"."+strconv.Itoa(i), item)
		}
	}

	return price, ve
}

func translate(op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}

	var ve validate.Errors
	if errors.As(err, &ve) || errors.Is(err, models.ErrOwnerRequired) {
		return err
	}

	return fmt.Errorf("%s recipe error: %w", op, err)
}
