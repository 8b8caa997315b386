// Package server exposes campaigns over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/campaigner/internal/config"
	"github.com/dmitrymomot/campaigner/middlewares"
	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/dnscheck"
	"github.com/dmitrymomot/campaigner/pkg/health"
	"github.com/dmitrymomot/campaigner/pkg/logger"
	"github.com/dmitrymomot/campaigner/pkg/materials"
	"github.com/dmitrymomot/campaigner/pkg/store"
)

const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
	defaultShutdownTimeout   = 30 * time.Second
	previewRows              = 5
)

// DomainChecker looks up a sending domain's DNS setup.
type DomainChecker interface {
	SendingDomain(ctx context.Context, domain string) (dnscheck.Result, error)
}

// Deps are the collaborators a Server routes to.
type Deps struct {
	Manager    *campaign.Manager
	Dispatcher *campaign.Dispatcher
	Uploads    store.Store[*contacts.Set]
	Materials  materials.Store
	DNS        DomainChecker
	Logger     *slog.Logger
	Checks     health.Checks
	// ShutdownHooks run after the HTTP server and the manager have stopped.
	ShutdownHooks []func(context.Context) error
}

// Server is the HTTP API.
type Server struct {
	deps    Deps
	cfg     config.Server
	log     *slog.Logger
	limiter *middlewares.RateLimiter
	router  chi.Router
}

// New builds the router. Call Run to serve.
func New(cfg config.Server, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNope()
	}
	if deps.DNS == nil {
		deps.DNS = dnscheck.New(nil)
	}
	if deps.Materials == nil {
		deps.Materials = materials.NewMemory(cfg.MaxUploadSize)
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = materials.DefaultMaxSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		log:     deps.Logger,
		limiter: middlewares.NewRateLimiter(cfg.VerifyPerMinute, middlewares.WithTrustedProxies(cfg.TrustedProxies...)),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middlewares.RequestID(),
		middlewares.Logging(s.log),
		middlewares.Recover(s.log),
		middlewares.CORS(middlewares.CORSConfig{AllowOrigins: s.cfg.CORSOrigins}),
	)

	r.NotFound(s.handle(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusNotFound, "route not found")
	}))
	r.MethodNotAllowed(s.handle(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusMethodNotAllowed, "method not allowed")
	}))

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.deps.Checks, health.WithLogger(s.log)))

	r.Route("/api", func(r chi.Router) {
		r.Post("/contacts", s.handle(s.uploadContacts))
		r.Get("/contacts/{id}", s.handle(s.getContacts))
		r.Post("/materials", s.handle(s.uploadMaterial))
		r.Delete("/materials/*", s.handle(s.deleteMaterial))
		r.With(s.limiter.Middleware).Post("/credentials/verify", s.handle(s.verifyCredentials))

		r.Post("/campaigns", s.handle(s.createCampaign))
		r.Get("/campaigns/{id}", s.handle(s.getCampaign))
		r.Delete("/campaigns/{id}", s.handle(s.cancelCampaign))
	})

	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle renders a returned error as JSON. 5xx causes are logged, never sent.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		he := toHTTPError(err)
		if he.Code >= http.StatusInternalServerError {
			s.log.ErrorContext(r.Context(), "request failed", slog.String("error", err.Error()))
		}

		resp := *he
		resp.RequestID = logger.RequestID(r.Context())
		writeJSON(w, he.Code, &resp)
	}
}

// Run serves on cfg.Addr until ctx is canceled or SIGINT/SIGTERM arrives,
// then drains requests, stops campaigns and runs shutdown hooks.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.limiter.Stop()
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	s.limiter.Stop()

	if s.deps.Manager != nil {
		if err := s.deps.Manager.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, hook := range s.deps.ShutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			s.log.Error("shutdown hook failed", slog.String("error", err.Error()))
		}
	}

	if len(errs) > 0 {
		s.log.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}
	s.log.Info("shutdown completed")
	return nil
}
