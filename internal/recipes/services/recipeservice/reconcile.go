package recipeservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
)

// relationPlan is what has to change for a recipe relation to equal the resolved set.
type relationPlan struct {
	attach []int64
	detach []int64
}

// uniqueNames drops repeated names, keeping first-seen order.
func uniqueNames(payloads []NamePayload) []string {
	seen := make(map[string]struct{}, len(payloads))
	names := make([]string, 0, len(payloads))

	for _, p := range payloads {
		n := strings.TrimSpace(p.Name)
		if _, ok := seen[n]; ok {
			continue
		}

		seen[n] = struct{}{}
		names = append(names, n)
	}

	return names
}

// resolve maps every name to an entry owned by ownerID, creating missing ones
// in input order. When the owner already has several entries with one name the
// oldest wins.
func resolve(ctx context.Context, tx reciperepo.Tx, kind models.Kind, ownerID int64,
	names []string,
) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := tx.FindEntries(ctx, kind, ownerID, names)
	if err != nil {
		return nil, fmt.Errorf("find %s error: %w", kind, err)
	}

	byName := make(map[string]int64, len(existing))

	for _, e := range existing {
		if cur, ok := byName[e.Name]; !ok || e.ID < cur {
			byName[e.Name] = e.ID
		}
	}

	ids := make([]int64, 0, len(names))

	for _, n := range names {
		id, ok := byName[n]
		if !ok {
			e, err := tx.CreateEntry(ctx, kind, ownerID, n)
			if err != nil {
				return nil, fmt.Errorf("create %s error: %w", kind, err)
			}

			id = e.ID
			byName[n] = id
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// diff compares current attachments with the desired set. Without replace
// nothing is detached.
func diff(current, desired []int64, replace bool) relationPlan {
	cur := make(map[int64]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}

	want := make(map[int64]struct{}, len(desired))

	var plan relationPlan

	for _, id := range desired {
		if _, ok := want[id]; ok {
			continue
		}

		want[id] = struct{}{}

		if _, ok := cur[id]; !ok {
			plan.attach = append(plan.attach, id)
		}
	}

	if replace {
		for _, id := range current {
			if _, ok := want[id]; !ok {
				plan.detach = append(plan.detach, id)
			}
		}
	}

	return plan
}

// reconcile makes the kind relation of recipeID hold exactly the entries named in
// payloads (replace) or at least them (create).
func reconcile(ctx context.Context, tx reciperepo.Tx, kind models.Kind, ownerID, recipeID int64,
	payloads []NamePayload, replace bool,
) error {
	if ownerID <= 0 {
		return models.ErrOwnerRequired
	}

	desired, err := resolve(ctx, tx, kind, ownerID, uniqueNames(payloads))
	if err != nil {
		return err
	}

	current, err := tx.AttachedIDs(ctx, kind, recipeID)
	if err != nil {
		return fmt.Errorf("attached %s error: %w", kind, err)
	}

	plan := diff(current, desired, replace)

	if err := tx.Detach(ctx, kind, recipeID, plan.detach); err != nil {
		return fmt.Errorf("detach %s error: %w", kind, err)
	}

	if err := tx.Attach(ctx, kind, recipeID, plan.attach); err != nil {
		return fmt.Errorf("attach %s error: %w", kind, err)
	}

	return nil
}
