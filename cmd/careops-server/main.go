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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careops/careops/internal/config"
	"github.com/careops/careops/internal/domain/careplan"
	"github.com/careops/careops/internal/domain/medication"
	"github.com/careops/careops/internal/domain/resident"
	"github.com/careops/careops/internal/domain/staffing"
	"github.com/careops/careops/internal/platform/db"
	"github.com/careops/careops/internal/platform/metrics"
	"github.com/careops/careops/internal/platform/middleware"
	"github.com/careops/careops/internal/platform/statuscache"
	"github.com/careops/careops/internal/sweep"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "careops-server",
		Short: "Care facility operations status API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// sweepCmd runs one resolution pass over every domain and exits. Useful
// from cron or for backfilling after an outage; the serve command runs
// the same pass on its own interval.
func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single status resolution pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			medSvc := medication.NewService(
				medication.NewOrderRepoPG(pool),
				medication.NewEventRepoPG(pool),
				cfg.Engine(),
			)
			staffSvc := staffing.NewService(
				staffing.NewStaffRepoPG(pool),
				staffing.NewShiftRepoPG(pool),
				staffing.NewAssignmentRepoPG(pool),
			)
			planSvc := careplan.NewService(
				careplan.NewPlanRepoPG(pool),
				careplan.NewGoalRepoPG(pool),
				cfg.Engine(),
			)

			runner := sweep.NewRunner(cfg.SweepInterval, logger)
			runner.Register("medication", medSvc)
			runner.Register("shift", staffSvc)
			runner.Register("careplan", planSvc)
			resolved, failed := runner.RunOnce(ctx, time.Now())
			fmt.Printf("Resolved %d entities, %d failed.\n", resolved, failed)
			if failed > 0 {
				return fmt.Errorf("%d entities failed to resolve", failed)
			}
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Status cache: redis when configured, in-process otherwise.
	var cache statuscache.Store = statuscache.NewMemoryStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		cache = statuscache.NewRedisStore(client, logger)
		logger.Info().Msg("status cache backed by redis")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	// -- Domain services --

	medSvc := medication.NewService(
		medication.NewOrderRepoPG(pool),
		medication.NewEventRepoPG(pool),
		cfg.Engine(),
	)
	medSvc.SetCache(cache, cfg.StatusFreshnessBound)
	medication.NewHandler(medSvc).RegisterRoutes(api)

	staffSvc := staffing.NewService(
		staffing.NewStaffRepoPG(pool),
		staffing.NewShiftRepoPG(pool),
		staffing.NewAssignmentRepoPG(pool),
	)
	staffSvc.SetCache(cache, cfg.StatusFreshnessBound)
	staffing.NewHandler(staffSvc).RegisterRoutes(api)

	planSvc := careplan.NewService(
		careplan.NewPlanRepoPG(pool),
		careplan.NewGoalRepoPG(pool),
		cfg.Engine(),
	)
	planSvc.SetCache(cache, cfg.StatusFreshnessBound)
	careplan.NewHandler(planSvc).RegisterRoutes(api)

	// Resident views aggregate alerts from the other domains.
	resSvc := resident.NewService(resident.NewRepoPG(pool))
	resSvc.AddAlertSource(medSvc)
	resSvc.AddAlertSource(planSvc)
	resident.NewHandler(resSvc).RegisterRoutes(api)

	// Periodic sweep keeps time-derived statuses moving between writes.
	runner := sweep.NewRunner(cfg.SweepInterval, logger)
	runner.Register("medication", medSvc)
	runner.Register("shift", staffSvc)
	runner.Register("careplan", planSvc)
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go runner.Run(sweepCtx)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
