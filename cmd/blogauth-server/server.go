package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/credentials"
	"github.com/MrEthical07/blogauth/metrics/export/prometheus"
	"github.com/MrEthical07/blogauth/middleware"
	"github.com/MrEthical07/blogauth/transport"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const dbPingTimeout = 3 * time.Second

type server struct {
	cfg    config
	log    *slog.Logger
	engine *blogauth.Engine
	rdb    *redis.Client
	pool   *pgxpool.Pool
	routes http.Handler
}

func newServer(ctx context.Context, cfg config, log *slog.Logger) (*server, error) {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return nil, err
	}

	s := &server{cfg: cfg, log: log}
	ready := false
	defer func() {
		if !ready {
			s.close()
		}
	}()

	source, err := s.openSource(ctx)
	if err != nil {
		return nil, err
	}
	verifier, err := credentials.NewVerifier(source, credentials.VerifierOptions{Logger: log})
	if err != nil {
		return nil, err
	}

	b := blogauth.New().
		WithConfig(engineCfg).
		WithCredentialVerifier(verifier).
		WithLogger(log)
	if cfg.AuditLog {
		b = b.WithAuditSink(blogauth.NewSlogSink(log.With(slog.String("component", "audit"))))
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		s.rdb = redis.NewClient(opts)
		b = b.WithRedis(s.rdb)
	}

	s.engine, err = b.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	s.routes, err = s.buildRoutes()
	if err != nil {
		return nil, err
	}
	ready = true
	return s, nil
}

// openSource returns the Postgres user table when DATABASE_URL is set and a
// seeded in-memory source otherwise.
func (s *server) openSource(ctx context.Context) (credentials.Source, error) {
	if s.cfg.DatabaseURL == "" {
		mem := credentials.NewMemorySource(nil)
		if s.cfg.DemoPassword == "" {
			s.log.Warn("no database configured and DEMO_PASSWORD unset, no user can log in")
			return mem, nil
		}
		if _, err := mem.Add(s.cfg.DemoUsername, "", s.cfg.DemoPassword); err != nil {
			return nil, fmt.Errorf("seed demo user: %w", err)
		}
		s.log.Info("using in-memory user source", slog.String("demo_user", s.cfg.DemoUsername))
		return mem, nil
	}

	pool, err := pgxpool.New(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.pool = pool

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pg, err := credentials.NewPostgresSource(pool)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	s.log.Info("using postgres user source")
	return pg, nil
}

func (s *server) buildRoutes() (http.Handler, error) {
	mux := http.NewServeMux()

	auth := transport.NewHandler(s.engine, transport.Options{
		Cookies: transport.CookieConfig{
			Insecure: !s.cfg.CookieSecure,
		},
		ExposeTokensInBody: s.cfg.ExposeTokensInBody,
		Logger:             s.log,
	})
	auth.Register(mux)

	guard := middleware.Guard(s.engine, blogauth.ModeInherit, auth.Binding().AccessToken)
	mux.Handle("GET /api/protected", guard(http.HandlerFunc(protected)))

	metrics, err := prometheus.Handler(s.engine)
	if err != nil {
		return nil, fmt.Errorf("metrics handler: %w", err)
	}
	mux.Handle("GET /metrics", metrics)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return withRequestLogging(mux, s.log), nil
}

// run serves until ctx is canceled, then drains in-flight requests.
func (s *server) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.routes,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.log.Info("server listening", slog.String("addr", s.cfg.HTTPAddr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *server) close() {
	if s.engine != nil {
		s.engine.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func protected(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": "hello, " + res.Identity.Username,
		"user":    res.Identity,
	})
}

func withRequestLogging(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
