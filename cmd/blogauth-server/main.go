// Command blogauth-server serves the session endpoints under /api/auth, a
// guarded sample route at /api/protected and Prometheus metrics at /metrics.
//
// Configuration comes from the environment: SECRET_KEY (required, 32+ bytes),
// REDIS_URL, DATABASE_URL, HTTP_ADDR, LOG_LEVEL, ACCESS_TTL, REFRESH_TTL,
// REFRESH_REUSE_GRACE, VALIDATION_MODE, COOKIE_SECURE, EXPOSE_TOKENS and
// AUDIT_LOG.
// Without DATABASE_URL a single user from DEMO_USERNAME/DEMO_PASSWORD is served
// from memory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := loadConfig()
	logger := newLogger(os.Stdout, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	return s.run(ctx)
}
