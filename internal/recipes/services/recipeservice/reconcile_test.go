package recipeservice

import (
	"context"
	"testing"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/memory"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
	"github.com/stretchr/testify/require"
)

func TestUniqueNames(t *testing.T) {
	got := uniqueNames([]NamePayload{{Name: "b"}, {Name: " a "}, {Name: "b"}, {Name: "a"}})
	require.Equal(t, []string{"b", "a"}, got)
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		current    []int64
		desired    []int64
		replace    bool
		wantAttach []int64
		wantDetach []int64
	}{
		{name: "create attaches missing", current: nil, desired: []int64{1, 2}, wantAttach: []int64{1, 2}},
		{name: "create never detaches", current: []int64{3}, desired: []int64{1}, wantAttach: []int64{1}},
		{
			name: "replace swaps", current: []int64{1, 3}, desired: []int64{1, 2}, replace: true,
			wantAttach: []int64{2}, wantDetach: []int64{3},
		},
		{name: "replace with empty clears", current: []int64{1, 2}, replace: true, wantDetach: []int64{1, 2}},
		{name: "duplicates collapse", desired: []int64{4, 4}, wantAttach: []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := diff(tt.current, tt.desired, tt.replace)
			require.Equal(t, tt.wantAttach, plan.attach)
			require.Equal(t, tt.wantDetach, plan.detach)
		})
	}
}

func TestResolvePicksOldestDuplicate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Atomic(ctx, func(tx reciperepo.Tx) error {
		first, err := tx.CreateEntry(ctx, models.KindTag, 1, "Thai")
		require.NoError(t, err)
		_, err = tx.CreateEntry(ctx, models.KindTag, 1, "Thai")
		require.NoError(t, err)

		ids, err := resolve(ctx, tx, models.KindTag, 1, []string{"Thai", "New"})
		require.NoError(t, err)
		require.Len(t, ids, 2)
		require.Equal(t, first.ID, ids[0])

		return nil
	}))

	require.Equal(t, 3, s.CountEntries(models.KindTag, 1))
}

func TestReconcileRequiresOwner(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx reciperepo.Tx) error {
		return reconcile(ctx, tx, models.KindTag, 0, 1, []NamePayload{{Name: "x"}}, false)
	})
	require.ErrorIs(t, err, models.ErrOwnerRequired)
}
