package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/Leopold1975/recipes_control/pkg/logger"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Storage: config.StorageMemory,
		Server: config.Server{
			Addr:          "127.0.0.1:0",
			BaseURL:       "/v1",
			IdleTimeout:   time.Second,
			MaxUploadSize: 1 << 20,
			MediaURL:      "/media/",
		},
		Auth:   config.Auth{TTL: time.Hour, Secret: "app-test", LoginRate: 100, LoginBurst: 100},
		Images: config.Images{Driver: "local", LocalDir: t.TempDir()},
	}
}

func send(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader

	if body != nil {
		bts, err := json.Marshal(body)
		require.NoError(t, err)

		rd = bytes.NewReader(bts)
	}

	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func post(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	return send(t, h, http.MethodPost, path, token, body)
}

func tagNames(t *testing.T, h http.Handler, path, token string) []string {
	t.Helper()

	rec := send(t, h, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var entries []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}

	return out
}

// runScenario registers a user, logs in and creates two recipes sharing an
// ingredient. It then shares a tag between two recipes, checks the
// assigned_only filter and clears the tags of one recipe with PATCH.
func runScenario(t *testing.T, h http.Handler, email string) {
	t.Helper()

	rec := post(t, h, "/v1/users", "", map[string]string{"email": email, "password": "secret1", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = post(t, h, "/v1/users/token", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tr struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))

	body := map[string]any{
		"title": "X", "time_minutes": 5, "price": 4.50,
		"ingredients": []map[string]string{{"name": "Salt"}},
	}

	for i := 0; i < 2; i++ {
		rec = post(t, h, "/v1/recipes", tr.Token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/ingredients", nil)
	req.Header.Set("Authorization", "Token "+tr.Token)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "Salt", entries[0]["name"])

	tagged := func(tags ...string) map[string]any {
		list := make([]map[string]string, 0, len(tags))
		for _, n := range tags {
			list = append(list, map[string]string{"name": n})
		}

		return map[string]any{"title": "T", "time_minutes": 1, "price": 1, "tags": list}
	}

	rec = post(t, h, "/v1/recipes", tr.Token, tagged("Shared", "Solo"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var first struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = post(t, h, "/v1/recipes", tr.Token, tagged("Shared"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.ElementsMatch(t, []string{"Shared", "Solo"}, tagNames(t, h, "/v1/tags?assigned_only=1", tr.Token))

	rec = send(t, h, http.MethodPatch, "/v1/recipes/"+strconv.FormatInt(first.ID, 10), tr.Token,
		map[string]any{"tags": []any{}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var patched struct {
		Tags []map[string]any `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	require.Empty(t, patched.Tags)

	require.Equal(t, []string{"Shared"}, tagNames(t, h, "/v1/tags?assigned_only=1", tr.Token))
	require.ElementsMatch(t, []string{"Shared", "Solo"}, tagNames(t, h, "/v1/tags", tr.Token))
}

func TestMemoryApp(t *testing.T) {
	ctx := context.Background()

	a, err := NewWithLogger(ctx, memoryConfig(t), logger.Nop())
	require.NoError(t, err)

	runScenario(t, a.Handler(), "a@example.com")

	require.NoError(t, a.CreateSuperuser(ctx, "root@example.com", "rootpass"))
	require.Error(t, a.CreateSuperuser(ctx, "root@example.com", "rootpass"))

	require.NoError(t, a.Stop(ctx))
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := NewWithLogger(context.Background(), memoryConfig(t), logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		a.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// TestPostgresApp runs the same scenario against real postgres and redis.
// RECIPES_TEST_CONFIG must point at a config file, see docker-compose.yaml.
func TestPostgresApp(t *testing.T) {
	path := os.Getenv("RECIPES_TEST_CONFIG")
	if path == "" {
		t.Skip("RECIPES_TEST_CONFIG is not set")
	}

	cfg, err := config.New(path)
	require.NoError(t, err)

	cfg.Server.Addr = "127.0.0.1:0"
	cfg.PostgresDB.MigrationsDir = filepath.Join("..", "..", "..", "migrations")

	ctx := context.Background()

	a, err := NewWithLogger(ctx, cfg, logger.Nop())
	require.NoError(t, err)

	defer a.Stop(ctx) //nolint:errcheck

	runScenario(t, a.Handler(), "pg-"+time.Now().Format("20060102150405.000000")+"@example.com")
}
