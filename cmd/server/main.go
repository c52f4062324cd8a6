package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Serdarq1/calendar-api/internal/auth"
	"github.com/Serdarq1/calendar-api/internal/calendar"
	"github.com/Serdarq1/calendar-api/internal/config"
	"github.com/Serdarq1/calendar-api/internal/httpapi"
	"github.com/Serdarq1/calendar-api/internal/identity"
	"github.com/Serdarq1/calendar-api/internal/logging"
	"github.com/Serdarq1/calendar-api/internal/server"
)

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger("calendar-api")

	var repo calendar.Repository
	switch cfg.DataStore {
	case "postgres":
		pgRepo, db, err := calendar.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			panic(fmt.Errorf("postgres: %w", err))
		}
		defer db.Close()
		if err := calendar.EnsureSchema(ctx, db); err != nil {
			panic(fmt.Errorf("schema: %w", err))
		}
		repo = pgRepo
	case "memory":
		repo = calendar.NewMemoryRepository()
	default:
		panic(fmt.Errorf("unsupported datastore: %s", cfg.DataStore))
	}

	provider := identity.NewClerkClient(cfg.Auth.SecretKey)
	service := calendar.NewService(repo, provider)

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     auth.Mode(cfg.Auth.Mode),
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := server.NewRouter("calendar-api", func(r chi.Router) {
		httpapi.RegisterRoutes(r, service, verifier, logger)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger, cfg.ShutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
