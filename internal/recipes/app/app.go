package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/Leopold1975/recipes_control/internal/pkg/pgtools"
	"github.com/Leopold1975/recipes_control/internal/pkg/redistools"
	"github.com/Leopold1975/recipes_control/internal/recipes/api/server"
	catalogpg "github.com/Leopold1975/recipes_control/internal/recipes/repository/catalogrepo/postgres"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/imagestore/local"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/imagestore/s3"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/memory"
	recipepg "github.com/Leopold1975/recipes_control/internal/recipes/repository/reciperepo/postgres"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/usercache/redis"
	userpg "github.com/Leopold1975/recipes_control/internal/recipes/repository/userrepo/postgres"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/authservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/catalogservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/recipeservice"
	"github.com/Leopold1975/recipes_control/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Server interface {
	Start(context.Context) error
	Shutdown(context.Context) error
	Handler() http.Handler
}

type RecipesApp struct {
	s       Server
	auth    *authservice.AuthService
	lg      logger.Logger
	cfg     config.Config
	closers []func(context.Context) error
}

type stores struct {
	users   authservice.Repository
	catalog catalogservice.Repository
	recipes recipeservice.Repository
}

func New(ctx context.Context, cfg config.Config) (*RecipesApp, error) {
	lg, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("can't get logger error: %w", err)
	}

	return NewWithLogger(ctx, cfg, lg)
}

// NewWithLogger wires the application around an existing logger.
func NewWithLogger(ctx context.Context, cfg config.Config, lg logger.Logger) (*RecipesApp, error) {
	a := &RecipesApp{lg: lg, cfg: cfg}

	st, err := a.openStores(ctx)
	if err != nil {
		a.close(context.Background()) //nolint:contextcheck

		return nil, err
	}

	var userCache authservice.Cache

	if cfg.RedisCache.Addr != "" {
		rdb, err := redistools.Connect(ctx, cfg.RedisCache)
		if err != nil {
			a.close(context.Background()) //nolint:contextcheck

			return nil, fmt.Errorf("redis user cache initializing error: %w", err)
		}

		uc := redis.New(rdb, cfg.RedisCache.ExpTime)
		a.closers = append(a.closers, func(context.Context) error { return uc.Close() })
		userCache = uc
	}

	images, media, err := openImages(ctx, cfg.Images)
	if err != nil {
		a.close(context.Background()) //nolint:contextcheck

		return nil, err
	}

	a.auth = authservice.New(st.users, userCache, cfg.Auth, lg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})) //nolint:exhaustruct

	a.s = server.New(cfg.Server, cfg.Auth, server.Services{
		Auth:    a.auth,
		Catalog: catalogservice.New(st.catalog, lg),
		Recipes: recipeservice.New(st.recipes, images, lg),
		Media:   media,
	}, reg, lg)

	return a, nil
}

func (a *RecipesApp) openStores(ctx context.Context) (stores, error) {
	if a.cfg.Storage == config.StorageMemory {
		a.lg.Warnf("using in-memory storage, data is lost on exit")

		m := memory.New()

		return stores{users: m, catalog: m, recipes: m}, nil
	}

	if err := pgtools.ApplyMigration(a.cfg.PostgresDB); err != nil {
		return stores{}, fmt.Errorf("apply migration error: %w", err)
	}

	db, err := pgtools.Connect(ctx, a.cfg.PostgresDB.ConnString())
	if err != nil {
		return stores{}, fmt.Errorf("postgres initializing error: %w", err)
	}

	a.closers = append(a.closers, func(ctx context.Context) error { return pgtools.Shutdown(ctx, db) })

	return stores{
		users:   userpg.New(db),
		catalog: catalogpg.New(db),
		recipes: recipepg.New(db),
	}, nil
}

func openImages(ctx context.Context, cfg config.Images) (recipeservice.ImageStore, http.Handler, error) {
	if cfg.Driver == "s3" {
		is, err := s3.New(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 image store initializing error: %w", err)
		}

		return is, nil, nil
	}

	is := local.New(cfg.LocalDir)

	return is, is.Handler(), nil
}

// Handler returns the routed HTTP handler without starting a listener.
func (a *RecipesApp) Handler() http.Handler {
	return a.s.Handler()
}

// CreateSuperuser adds a staff account from the command line.
func (a *RecipesApp) CreateSuperuser(ctx context.Context, email, password string) error {
	u, err := a.auth.CreateSuperuser(ctx, email, password)
	if err != nil {
		return fmt.Errorf("create superuser error: %w", err)
	}

	a.lg.Infof("superuser %s created with id %d", u.Email, u.ID)

	return nil
}

func (a *RecipesApp) Run(ctx context.Context) {
	a.lg.Infof("STARTED SERVER ON %s", a.cfg.Server.Addr)

	errCh := make(chan error, 1)

	go func() {
		errCh <- a.s.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.lg.Errorf("server start error: %s", err.Error())
		}
	case <-ctx.Done():
		if err := <-errCh; err != nil {
			a.lg.Errorf("server stop error: %s", err.Error())
		}
	}

	ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := a.Stop(ctxS); err != nil { //nolint:contextcheck
		a.lg.Errorf("shutdown error: %s", err.Error())
	}
}

// Stop releases the storage connections. The HTTP server stops with the Run context.
func (a *RecipesApp) Stop(ctx context.Context) error {
	if err := a.close(ctx); err != nil {
		return err
	}

	a.lg.Info("Shutdowned successfully")
	a.lg.Sync() //nolint:errcheck

	return nil
}

func (a *RecipesApp) close(ctx context.Context) error {
	var first error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = fmt.Errorf("close error: %w", err)
		}
	}

	a.closers = nil

	return first
}
