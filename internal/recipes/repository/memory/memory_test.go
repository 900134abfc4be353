package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/catalogrepo"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
	"github.com/stretchr/testify/require"
)

func TestAtomicRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx reciperepo.Tx) error {
		if _, err := tx.CreateRecipe(ctx, models.Recipe{OwnerID: 1, Title: "x"}); err != nil {
			return err
		}

		if _, err := tx.CreateEntry(ctx, models.KindTag, 1, "Thai"); err != nil {
			return err
		}

		return errors.New("boom")
	})
	require.Error(t, err)

	recipes, err := s.ListRecipes(ctx, reciperepo.ListRequest{OwnerID: 1})
	require.NoError(t, err)
	require.Empty(t, recipes)
	require.Zero(t, s.CountEntries(models.KindTag, 1))
}

func TestAssignedOnlyDistinctAndScoped(t *testing.T) {
	s := New()
	ctx := context.Background()

	var shared, unused, foreign models.CatalogEntry

	require.NoError(t, s.Atomic(ctx, func(tx reciperepo.Tx) error {
		shared, _ = tx.CreateEntry(ctx, models.KindTag, 1, "Breakfast")
		unused, _ = tx.CreateEntry(ctx, models.KindTag, 1, "Lunch")
		foreign, _ = tx.CreateEntry(ctx, models.KindTag, 2, "Dinner")

		for i := 0; i < 2; i++ {
			id, _ := tx.CreateRecipe(ctx, models.Recipe{OwnerID: 1, Title: "r"})
			_ = tx.Attach(ctx, models.KindTag, id, []int64{shared.ID})
		}

		// another owner's recipe referencing a tag of owner 1 must not count
		id, _ := tx.CreateRecipe(ctx, models.Recipe{OwnerID: 2, Title: "r"})

		return tx.Attach(ctx, models.KindTag, id, []int64{unused.ID, foreign.ID})
	}))

	all, err := s.ListEntries(ctx, catalogrepo.ListRequest{Kind: models.KindTag, OwnerID: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"Lunch", "Breakfast"}, names(all))

	assigned, err := s.ListEntries(ctx, catalogrepo.ListRequest{Kind: models.KindTag, OwnerID: 1, AssignedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []models.CatalogEntry{shared}, assigned)
}

func TestDeleteUserCascades(t *testing.T) {
	s := New()
	ctx := context.Background()

	uid, err := s.CreateUser(ctx, models.User{Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, s.Atomic(ctx, func(tx reciperepo.Tx) error {
		id, _ := tx.CreateRecipe(ctx, models.Recipe{OwnerID: uid, Title: "r"})
		e, _ := tx.CreateEntry(ctx, models.KindIngredient, uid, "Salt")

		return tx.Attach(ctx, models.KindIngredient, id, []int64{e.ID})
	}))

	require.NoError(t, s.DeleteUser(ctx, uid))

	recipes, err := s.ListRecipes(ctx, reciperepo.ListRequest{OwnerID: uid})
	require.NoError(t, err)
	require.Empty(t, recipes)
	require.Zero(t, s.CountEntries(models.KindIngredient, uid))
}

func names(entries []models.CatalogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}

	return out
}
