package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Zaqwedo/denta-crm/internal/config"
	"github.com/Zaqwedo/denta-crm/internal/domain/changelog"
	"github.com/Zaqwedo/denta-crm/internal/domain/dedup"
	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
	"github.com/Zaqwedo/denta-crm/internal/domain/staff"
	"github.com/Zaqwedo/denta-crm/internal/domain/user"
	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
	"github.com/Zaqwedo/denta-crm/internal/platform/db"
	"github.com/Zaqwedo/denta-crm/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "denta-server",
		Short: "Dental clinic CRM server",
	}

	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	var upDir string
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if upDir == "" {
				upDir = cfg.MigrationsDir
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, upDir).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", n)
			return nil
		},
	}
	up.Flags().StringVar(&upDir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")

	var statusDir string
	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if statusDir == "" {
				statusDir = cfg.MigrationsDir
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, statusDir).Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-40s %s\n", "VERSION", "NAME", "APPLIED")
			for _, s := range statuses {
				applied := "pending"
				if s.Applied {
					applied = s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%-10d %-40s %s\n", s.Version, s.Name, applied)
			}
			return nil
		},
	}
	status.Flags().StringVar(&statusDir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")

	migrate.AddCommand(up, status)
	return migrate
}

func seedCmd() *cobra.Command {
	var email, fullName, password string
	seed := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := user.NewService(user.NewRepoPG(pool), zerolog.Nop())
			a, err := svc.Create(ctx, email, fullName, auth.RoleAdmin, password)
			if err != nil {
				return err
			}
			fmt.Printf("created admin account %s\n", a.Email)
			return nil
		},
	}
	seed.Flags().StringVar(&email, "email", "", "account email")
	seed.Flags().StringVar(&fullName, "name", "", "display name")
	seed.Flags().StringVar(&password, "password", "", "account password")
	return seed
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("database pool established")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", db.HealthHandler(pool))

	issuer := auth.NewTokenIssuer(cfg.AuthSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	oauthReg := auth.NewOAuthRegistry(auth.OAuthCredentials{
		GoogleClientID: cfg.GoogleClientID,
		GoogleSecret:   cfg.GoogleSecret,
		YandexClientID: cfg.YandexClientID,
		YandexSecret:   cfg.YandexSecret,
		RedirectURL:    cfg.OAuthRedirect,
	})
	challenges := auth.NewChallengeStore(5 * time.Minute)

	userSvc := user.NewService(user.NewRepoPG(pool), logger)
	userHandler := user.NewHandler(userSvc, issuer, oauthReg, challenges)

	// Sign-in endpoints sit outside the session middleware.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	userHandler.RegisterPublicRoutes(public)

	api := e.Group("/api/v1")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.SessionMiddleware(issuer))
	}
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	staffSvc := staff.NewService(staff.NewRepoPG(pool), logger)
	changelogSvc := changelog.NewService(changelog.NewRepoPG(pool), logger)

	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, changelogSvc, logger)
	dedupSvc := dedup.NewService(dedup.NewRepoPG(pool), patientRepo, logger)

	patient.NewHandler(patientSvc, staffSvc).RegisterRoutes(api)
	changelog.NewHandler(changelogSvc, patientSvc, staffSvc).RegisterRoutes(api)
	dedup.NewHandler(dedupSvc, staffSvc).RegisterRoutes(api)
	staff.NewHandler(staffSvc).RegisterRoutes(api)
	userHandler.RegisterRoutes(api)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
