package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"itam-api/internal/auth"
	"itam-api/internal/config"
	"itam-api/internal/handlers"
	"itam-api/internal/inventory"
	"itam-api/pkg/importer"
)

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server is built around.
type Deps struct {
	Service *inventory.Service
	Metrics *Metrics
	DB      Pinger
	Mapping *importer.Mapping
	Logger  zerolog.Logger
}

type Server struct {
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics

	cfg *config.Config
	svc *inventory.Service
	db  Pinger
	log zerolog.Logger
}

// NewServer wires middleware and routes. The JWT settings are validated here
// so a misconfigured server never starts accepting requests.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, errors.New("server: inventory service is required")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("JWT configuration validation failed: %w", err)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
		cfg:        cfg,
		svc:        deps.Service,
		db:         deps.DB,
		log:        deps.Logger,
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(requestLogger(s.log))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Token-Expires-At", "X-Token-Expires-In"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	// Public routes
	s.Router.Get("/health", s.health)
	s.Router.With(httprate.LimitByIP(cfg.LoginRateLimit, time.Minute)).Post("/auth/login", s.loginUser)

	imports := handlers.NewImportsHandler(s.svc, deps.Mapping, cfg.ImportMaxBytes, s.log)

	s.Router.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		r.Use(auth.AuthMiddleware(s.JWTManager))
		r.Use(withActor)

		s.mountProtectedRoutes(r, imports)
	})

	return s, nil
}

// ServeHTTP lets the server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health: database ping failed")
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router, imports *handlers.ImportsHandler) {
	writers := auth.MustRole(auth.RoleAdmin, auth.RoleCustodian)
	admins := auth.MustRole(auth.RoleAdmin)

	r.Get("/auth/profile", s.getProfile)
	r.Get("/classify", s.classify)

	// Items
	r.Get("/items", s.listItems)
	r.Get("/items/{id}", s.getItem)
	r.Get("/items/{id}/components", s.listComponents)
	r.Get("/items/{id}/logs", s.listItemLogs)
	r.Get("/items/{id}/image", s.downloadImage)
	r.With(writers).Post("/items", s.createItem)
	r.With(writers).Put("/items/{id}", s.updateItem)
	r.With(writers).Post("/items/{id}/owner", s.assignOwner)
	r.With(writers).Post("/items/{id}/claim", s.claimItem)
	r.With(writers).Post("/items/{id}/image", s.uploadImage)
	r.With(admins).Delete("/items/{id}", s.deleteItem)

	// Ledgers
	r.Get("/ledgers", s.listLedgers)
	r.Get("/ledgers/{id}", s.getLedger)
	r.Get("/users/{id}/ledger", s.getOwnerLedger)

	// Users
	r.Get("/users", s.listUsers)
	r.Get("/users/{id}", s.getUser)
	r.With(admins).Post("/users", s.createUser)

	// Excel import
	r.With(writers).Post("/imports/excel", imports.UploadExcel)
}
