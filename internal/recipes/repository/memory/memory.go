// Package memory keeps users, catalogs and recipes in process memory.
// It mirrors the postgres repositories, including owner scoping, cascades and
// all-or-nothing Atomic blocks, and backs tests and the "memory" storage mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/catalogrepo"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/userrepo"
)

var kinds = []models.Kind{models.KindTag, models.KindIngredient}

type state struct {
	seq     map[string]int64
	users   map[int64]models.User
	entries map[models.Kind]map[int64]models.CatalogEntry
	recipes map[int64]models.Recipe
	// rel[kind][recipeID] is the set of attached entry ids.
	rel map[models.Kind]map[int64]map[int64]struct{}
}

func newState() state {
	st := state{
		seq:     make(map[string]int64),
		users:   make(map[int64]models.User),
		entries: make(map[models.Kind]map[int64]models.CatalogEntry),
		recipes: make(map[int64]models.Recipe),
		rel:     make(map[models.Kind]map[int64]map[int64]struct{}),
	}

	for _, k := range kinds {
		st.entries[k] = make(map[int64]models.CatalogEntry)
		st.rel[k] = make(map[int64]map[int64]struct{})
	}

	return st
}

func (st state) clone() state {
	c := newState()

	for k, v := range st.seq {
		c.seq[k] = v
	}

	for id, u := range st.users {
		c.users[id] = u
	}

	for id, r := range st.recipes {
		c.recipes[id] = r
	}

	for _, k := range kinds {
		for id, e := range st.entries[k] {
			c.entries[k][id] = e
		}

		for rid, set := range st.rel[k] {
			cs := make(map[int64]struct{}, len(set))
			for id := range set {
				cs[id] = struct{}{}
			}

			c.rel[k][rid] = cs
		}
	}

	return c
}

func (st state) next(table string) int64 {
	st.seq[table]++

	return st.seq[table]
}

type Store struct {
	mu sync.Mutex
	st state
}

func New() *Store {
	return &Store{st: newState()}
}

// Users.

func (s *Store) CreateUser(_ context.Context, u models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, x := range s.st.users {
		if x.Email == u.Email {
			return 0, userrepo.ErrAlreadyExists
		}
	}

	u.ID = s.st.next("users")
	s.st.users[u.ID] = u

	return u.ID, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.st.users {
		if u.Email == email {
			return u, nil
		}
	}

	return models.User{}, userrepo.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[u.ID]; !ok {
		return userrepo.ErrNotFound
	}

	for _, x := range s.st.users {
		if x.Email == u.Email && x.ID != u.ID {
			return userrepo.ErrAlreadyExists
		}
	}

	s.st.users[u.ID] = u

	return nil
}

func (s *Store) TouchLastLogin(context.Context, int64) error {
	return nil
}

// DeleteUser removes the user and everything the user owns.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[id]; !ok {
		return userrepo.ErrNotFound
	}

	delete(s.st.users, id)

	for rid, r := range s.st.recipes {
		if r.OwnerID == id {
			s.st.deleteRecipe(rid)
		}
	}

	for _, k := range kinds {
		for eid, e := range s.st.entries[k] {
			if e.OwnerID == id {
				s.st.deleteEntry(k, eid)
			}
		}
	}

	return nil
}

// Catalog.

func (s *Store) CreateEntry(_ context.Context, kind models.Kind, e models.CatalogEntry) (models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.createEntry(kind, e.OwnerID, e.Name), nil
}

func (s *Store) GetEntry(_ context.Context, kind models.Kind, ownerID, id int64) (models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.entries[kind][id]
	if !ok || e.OwnerID != ownerID {
		return models.CatalogEntry{}, catalogrepo.ErrNotFound
	}

	return e, nil
}

func (s *Store) ListEntries(_ context.Context, req catalogrepo.ListRequest) ([]models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := make(map[int64]struct{})

	if req.AssignedOnly {
		for rid, set := range s.st.rel[req.Kind] {
			if s.st.recipes[rid].OwnerID != req.OwnerID {
				continue
			}

			for id := range set {
				assigned[id] = struct{}{}
			}
		}
	}

	out := make([]models.CatalogEntry, 0)

	for id, e := range s.st.entries[req.Kind] {
		if e.OwnerID != req.OwnerID {
			continue
		}

		if _, ok := assigned[id]; req.AssignedOnly && !ok {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}

		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (s *Store) UpdateEntry(_ context.Context, kind models.Kind, e models.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.st.entries[kind][e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return catalogrepo.ErrNotFound
	}

	cur.Name = e.Name
	s.st.entries[kind][e.ID] = cur

	return nil
}

func (s *Store) DeleteEntry(_ context.Context, kind models.Kind, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.entries[kind][id]
	if !ok || e.OwnerID != ownerID {
		return catalogrepo.ErrNotFound
	}

	s.st.deleteEntry(kind, id)

	return nil
}

// CountEntries reports how many entries of kind ownerID has. Test helper.
func (s *Store) CountEntries(kind models.Kind, ownerID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, e := range s.st.entries[kind] {
		if e.OwnerID == ownerID {
			n++
		}
	}

	return n
}

// Recipes.

func (s *Store) ListRecipes(_ context.Context, req reciperepo.ListRequest) ([]models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Recipe, 0)

	for id, r := range s.st.recipes {
		if r.OwnerID != req.OwnerID {
			continue
		}

		if !s.st.referencesAny(models.KindTag, id, req.TagIDs) ||
			!s.st.referencesAny(models.KindIngredient, id, req.IngredientIDs) {
			continue
		}

		out = append(out, s.st.withEntries(r))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, nil
}

func (s *Store) GetRecipe(_ context.Context, ownerID, id int64) (models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.getRecipe(ownerID, id)
}

func (s *Store) DeleteRecipe(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.st.recipes[id]
	if !ok || r.OwnerID != ownerID {
		return reciperepo.ErrNotFound
	}

	s.st.deleteRecipe(id)

	return nil
}

func (s *Store) SetImage(_ context.Context, ownerID, id int64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.st.recipes[id]
	if !ok || r.OwnerID != ownerID {
		return reciperepo.ErrNotFound
	}

	r.Image = path
	s.st.recipes[id] = r

	return nil
}

// Atomic runs fn against a private copy and publishes it only when fn succeeds.
func (s *Store) Atomic(_ context.Context, fn func(reciperepo.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()

	if err := fn(tx{st: work}); err != nil {
		return err
	}

	s.st = work

	return nil
}

func (st state) createEntry(kind models.Kind, ownerID int64, name string) models.CatalogEntry {
	e := models.CatalogEntry{ID: st.next(kind.Table()), OwnerID: ownerID, Name: name}
	st.entries[kind][e.ID] = e

	return e
}

func (st state) deleteEntry(kind models.Kind, id int64) {
	delete(st.entries[kind], id)

	for _, set := range st.rel[kind] {
		delete(set, id)
	}
}

func (st state) deleteRecipe(id int64) {
	delete(st.recipes, id)

	for _, k := range kinds {
		delete(st.rel[k], id)
	}
}

func (st state) referencesAny(kind models.Kind, recipeID int64, ids []int64) bool {
	if len(ids) == 0 {
		return true
	}

	for _, id := range ids {
		if _, ok := st.rel[kind][recipeID][id]; ok {
			return true
		}
	}

	return false
}

func (st state) withEntries(r models.Recipe) models.Recipe {
	for _, k := range kinds {
		entries := make([]models.CatalogEntry, 0, len(st.rel[k][r.ID]))
		for id := range st.rel[k][r.ID] {
			entries = append(entries, st.entries[k][id])
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
		r.SetEntries(k, entries)
	}

	return r
}

func (st state) getRecipe(ownerID, id int64) (models.Recipe, error) {
	r, ok := st.recipes[id]
	if !ok || r.OwnerID != ownerID {
		return models.Recipe{}, reciperepo.ErrNotFound
	}

	return st.withEntries(r), nil
}

type tx struct {
	st state
}

func (t tx) CreateRecipe(_ context.Context, r models.Recipe) (int64, error) {
	r.ID = t.st.next("recipes")
	r.Tags, r.Ingredients = nil, nil
	t.st.recipes[r.ID] = r

	return r.ID, nil
}

func (t tx) UpdateRecipe(_ context.Context, r models.Recipe) error {
	cur, ok := t.st.recipes[r.ID]
	if !ok || cur.OwnerID != r.OwnerID {
		return reciperepo.ErrNotFound
	}

	cur.Title, cur.Description, cur.TimeMinutes, cur.Price, cur.Link =
		r.Title, r.Description, r.TimeMinutes, r.Price, r.Link
	t.st.recipes[r.ID] = cur

	return nil
}

func (t tx) GetRecipe(_ context.Context, ownerID, id int64) (models.Recipe, error) {
	return t.st.getRecipe(ownerID, id)
}

func (t tx) FindEntries(_ context.Context, kind models.Kind, ownerID int64,
	names []string,
) ([]models.CatalogEntry, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}

	out := make([]models.CatalogEntry, 0)

	for _, e := range t.st.entries[kind] {
		if _, ok := want[e.Name]; ok && e.OwnerID == ownerID {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (t tx) CreateEntry(_ context.Context, kind models.Kind, ownerID int64, name string) (models.CatalogEntry, error) {
	return t.st.createEntry(kind, ownerID, name), nil
}

func (t tx) AttachedIDs(_ context.Context, kind models.Kind, recipeID int64) ([]int64, error) {
	ids := make([]int64, 0, len(t.st.rel[kind][recipeID]))
	for id := range t.st.rel[kind][recipeID] {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (t tx) Attach(_ context.Context, kind models.Kind, recipeID int64, ids []int64) error {
	set, ok := t.st.rel[kind][recipeID]
	if !ok {
		set = make(map[int64]struct{})
		t.st.rel[kind][recipeID] = set
	}

	for _, id := range ids {
		set[id] = struct{}{}
	}

	return nil
}

func (t tx) Detach(_ context.Context, kind models.Kind, recipeID int64, ids []int64) error {
	for _, id := range ids {
		delete(t.st.rel[kind][recipeID], id)
	}

	return nil
}
