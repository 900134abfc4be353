package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

	return p
}

func TestNewMemoryDefaults(t *testing.T) {
	p := writeConfig(t, `
storage: memory
auth:
  secret: s3cr3t
`)

	cfg, err := New(p)
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "/v1", cfg.Server.BaseURL)
	require.Equal(t, 24*time.Hour, cfg.Auth.TTL)
	require.Equal(t, "local", cfg.Images.Driver)
	require.Equal(t, int64(5242880), cfg.Server.MaxUploadSize)
	require.Equal(t, int64(1048576), cfg.Server.MaxBodySize)
}

func TestValidate(t *testing.T) {
	base := Config{
		Storage: StoragePostgres,
		PostgresDB: PostgresDB{
			Username: "u",
			DB:       "recipes",
		},
		Auth:   Auth{Secret: "x"},
		Images: Images{Driver: "local"},
	}
	require.NoError(t, base.Validate())

	noDB := base
	noDB.PostgresDB.DB = ""
	require.ErrorIs(t, noDB.Validate(), ErrInvalid)

	s3 := base
	s3.Images.Driver = "s3"
	require.ErrorIs(t, s3.Validate(), ErrInvalid)

	unknown := base
	unknown.Storage = "mongo"
	require.ErrorIs(t, unknown.Validate(), ErrInvalid)

	noSecret := base
	noSecret.Auth.Secret = ""
	require.ErrorIs(t, noSecret.Validate(), ErrInvalid)
}

func TestConnString(t *testing.T) {
	p := PostgresDB{
		Addr: "localhost:5432", Username: "u", Password: "p", DB: "d",
		SSLmode: "disable", MaxConns: "10",
	}
	require.Equal(t, "postgres://u:p@localhost:5432/d?sslmode=disable&pool_max_conns=10", p.ConnString())
}
