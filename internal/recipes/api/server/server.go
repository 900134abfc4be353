package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/Leopold1975/recipes_control/internal/recipes/api/oapi"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/authservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/recipeservice"
	"github.com/Leopold1975/recipes_control/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const defaultMaxBodySize = 1 << 20

type Server struct {
	serv           *http.Server
	authService    AuthService
	catalogService CatalogService
	recipeService  RecipeService
	limiter        *ipLimiter
	cfg            config.Server
	lg             logger.Logger
}

type AuthService interface {
	Register(context.Context, authservice.RegisterRequest) (models.User, error)
	Login(context.Context, authservice.LoginRequest) (string, error)
	Authenticate(context.Context, string) (models.User, error)
	UpdateUser(context.Context, models.User, authservice.UpdateUserRequest, bool) (models.User, error)
}

type CatalogService interface {
	List(ctx context.Context, kind models.Kind, ownerID int64, assignedOnly bool) ([]models.CatalogEntry, error)
	Get(ctx context.Context, kind models.Kind, ownerID, id int64) (models.CatalogEntry, error)
	Create(ctx context.Context, kind models.Kind, ownerID int64, name string) (models.CatalogEntry, error)
	Update(ctx context.Context, kind models.Kind, ownerID, id int64, name *string) (models.CatalogEntry, error)
	Delete(ctx context.Context, kind models.Kind, ownerID, id int64) error
}

type RecipeService interface {
	List(ctx context.Context, ownerID int64, req recipeservice.ListRequest) ([]models.Recipe, error)
	Get(ctx context.Context, ownerID, id int64) (models.Recipe, error)
	Create(ctx context.Context, ownerID int64, req recipeservice.RecipeRequest) (models.Recipe, error)
	Update(ctx context.Context, ownerID, id int64, req recipeservice.RecipeRequest, partial bool) (models.Recipe, error)
	Delete(ctx context.Context, ownerID, id int64) error
	UploadImage(ctx context.Context, ownerID, id int64, up recipeservice.Upload) (models.Recipe, error)
}

// Services groups what the handlers call.
type Services struct {
	Auth    AuthService
	Catalog CatalogService
	Recipes RecipeService
	// Media serves stored images under mediaURL. Nil when they live elsewhere.
	Media http.Handler
}

func New(cfg config.Server, authCfg config.Auth, svc Services, reg *prometheus.Registry, lg logger.Logger) *Server {
	s := &Server{
		authService:    svc.Auth,
		catalogService: svc.Catalog,
		recipeService:  svc.Recipes,
		limiter:        newIPLimiter(rate.Limit(authCfg.LoginRate), authCfg.LoginBurst),
		cfg:            cfg,
		lg:             lg,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{ //nolint:exhaustruct
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:gomnd
	}))

	router.Get("/healthz", s.Healthz)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})) //nolint:exhaustruct

	if svc.Media != nil && strings.HasPrefix(cfg.MediaURL, "/") {
		prefix := strings.TrimSuffix(cfg.MediaURL, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix, svc.Media))
	}

	h := oapi.HandlerWithOptions(s, oapi.ChiServerOptions{ //nolint:exhaustruct
		BaseURL:    cfg.BaseURL,
		BaseRouter: router,
		Middlewares: []oapi.MiddlewareFunc{
			authMiddleware(svc.Auth, lg),
			rateLimitMiddleware(s.limiter, cfg.BaseURL+"/users", cfg.BaseURL+"/users/token"),
			metricsMiddleware(newMetrics(reg)),
			loggingMiddleware(lg),
		},
		ErrorHandlerFunc: s.paramError,
	})

	s.serv = &http.Server{ //nolint:exhaustruct
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.serv.Handler
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.lg.Infof("server listening on %s", s.cfg.Addr)

	select {
	case <-ctx.Done():
		ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
		defer cancel()

		if err := s.Shutdown(ctxS); err != nil { //nolint:contextcheck
			return fmt.Errorf("context error: %w server error %w", ctxS.Err(), err)
		}

		if !errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("context cancelled error: %w", ctx.Err())
		}

		return nil
	case err := <-errCh:
		return fmt.Errorf("listen and serve error: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctxS, cancel := context.WithTimeout(ctx, s.serv.IdleTimeout)
	defer cancel()

	s.limiter.Stop()

	if err := s.serv.Shutdown(ctxS); err != nil {
		return fmt.Errorf("shutdown server error: %w", err)
	}

	return nil
}

// (GET /healthz).
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body of at most cfg.MaxBodySize bytes into v.
// An empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	limit := s.cfg.MaxBodySize
	if limit <= 0 {
		limit = defaultMaxBodySize
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))

	err := dec.Decode(v)

	var me *http.MaxBytesError

	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &me):
		return fmt.Errorf("%w: limit is %d bytes", errTooLarge, me.Limit)
	default:
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	bts, err := json.Marshal(v)
	if err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(bts) //nolint:errcheck
}
