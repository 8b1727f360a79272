package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medref/medref/internal/config"
	"github.com/medref/medref/internal/domain/crossing"
	"github.com/medref/medref/internal/domain/diagnostics"
	"github.com/medref/medref/internal/domain/referral"
	"github.com/medref/medref/internal/domain/statistics"
	"github.com/medref/medref/internal/platform/db"
	"github.com/medref/medref/internal/platform/events"
	"github.com/medref/medref/internal/platform/middleware"
	"github.com/medref/medref/internal/seed"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "medref-server",
		Short: "Medical referral tracking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(referralsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the referral API server",
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

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				dir := migrationsDir(cmd, cfg)
				fmt.Printf("Running migrations from: %s\n", dir)

				count, err := db.NewMigrator(pool, dir).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}

				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
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
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Fprintln(cmd.OutOrStdout(), "Drop the affected tables by hand and remove their rows from schema_migrations.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample referrals, crossings and statistics into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				a := newApp(cfg, pool, newLogger(cfg))
				res, err := a.seeder.Run(ctx)
				if err != nil {
					return fmt.Errorf("seed failed: %w", err)
				}
				if res.Skipped {
					fmt.Println("Referrals already exist; nothing to do.")
					return nil
				}
				fmt.Printf("Inserted %d referral(s) and %d crossing(s).\n", res.Referrals, res.Crossings)
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Manage summary statistics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "recompute",
		Short: "Recompute derived statistics from stored referrals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				a := newApp(cfg, pool, newLogger(cfg))
				st, err := a.statistics.Recompute(ctx)
				if err != nil {
					return fmt.Errorf("recompute failed: %w", err)
				}
				printStatistics(cmd, st)
				return nil
			})
		},
	})

	return cmd
}

func printStatistics(cmd *cobra.Command, st *statistics.Statistics) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %d\n", "total referrals", st.TotalReferrals)
	fmt.Fprintf(out, "%-24s %d\n", "completed travels", st.CompletedTravels)
	fmt.Fprintf(out, "%-24s %d\n", "monthly referrals", st.MonthlyReferrals)
	fmt.Fprintf(out, "%-24s %d\n", "pending referrals", st.PendingReferrals)
	fmt.Fprintf(out, "%-24s %d%%\n", "approval rate", st.ApprovalRate)
	fmt.Fprintf(out, "%-24s %d\n", "avg processing days", st.AverageProcessingDays)
	fmt.Fprintf(out, "%-24s %s\n", "last updated", st.LastUpdated.Format(time.RFC3339))
}

func referralsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referrals",
		Short: "Work with stored referrals",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write referrals matching the search criteria to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient-id")
			number, _ := cmd.Flags().GetString("referral-number")
			out, _ := cmd.Flags().GetString("out")

			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				a := newApp(cfg, pool, newLogger(cfg))
				items, err := a.referrals.Search(ctx, referral.SearchCriteria{PatientID: patientID, ReferralNumber: number})
				if err != nil {
					return err
				}
				data, err := referral.ExportWorkbook(items)
				if err != nil {
					return err
				}
				if out == "" {
					out = fmt.Sprintf("referrals-%s.xlsx", time.Now().UTC().Format("20060102"))
				}
				if err := os.WriteFile(filepath.Clean(out), data, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Printf("Exported %d referral(s) to %s\n", len(items), out)
				return nil
			})
		},
	}
	exportCmd.Flags().String("patient-id", "", "Substring of the patient id to match")
	exportCmd.Flags().String("referral-number", "", "Substring of the referral number to match")
	exportCmd.Flags().String("out", "", "Output file (default referrals-YYYYMMDD.xlsx)")
	cmd.AddCommand(exportCmd)

	return cmd
}

// withPool loads config, opens a pool for the duration of fn and closes it.
func withPool(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// app holds the services shared by the server and the CLI commands.
type app struct {
	bus        *events.Bus
	referrals  *referral.Service
	crossings  *crossing.Service
	statistics *statistics.Service
	seeder     *seed.Seeder
}

func newApp(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *app {
	tx := db.NewTransactor(pool)
	bus := events.NewBus(logger)

	referralRepo := referral.NewReferralRepoPG(pool)
	crossingRepo := crossing.NewCrossingRepoPG(pool)
	statsRepo := statistics.NewStatisticsRepoPG(pool)

	refSvc := referral.NewService(referralRepo, bus)

	crossSvc := crossing.NewService(crossingRepo, tx)
	crossSvc.SetStrictStatus(cfg.StrictCrossingStatus)

	statsSvc := statistics.NewService(statsRepo, refSvc, tx)
	bus.Subscribe(events.ReferralCreated, "statistics.recompute", statsSvc.RecomputeOnReferralCreated)

	return &app{
		bus:        bus,
		referrals:  refSvc,
		crossings:  crossSvc,
		statistics: statsSvc,
		seeder:     seed.New(referralRepo, crossingRepo, statsRepo, tx, logger),
	}
}

// attachEventSink forwards referral events to the configured external
// backend. The returned func releases the sink's connections.
func attachEventSink(cfg *config.Config, bus *events.Bus) (func() error, error) {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		client, err := events.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		pub := events.NewRedisPublisher(client, cfg.RedisStream)
		bus.Forward(events.ReferralCreated, "redis:"+cfg.RedisStream, pub)
		return pub.Close, nil
	case config.EventsKafka:
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		bus.Forward(events.ReferralCreated, "kafka:"+cfg.KafkaTopic, pub)
		return pub.Close, nil
	default:
		return func() error { return nil }, nil
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, a *app, health db.HealthSource) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(health))

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))

	referral.NewHandler(a.referrals).RegisterRoutes(apiV1)
	crossing.NewHandler(a.crossings).RegisterRoutes(apiV1)
	statistics.NewHandler(a.statistics).RegisterRoutes(apiV1)
	diagnostics.NewHandler(a.referrals, a.crossings).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = newLogger(cfg)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	a := newApp(cfg, pool, logger)

	closeSink, err := attachEventSink(cfg, a.bus)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up event sink")
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Warn().Err(err).Msg("closing event sink")
		}
	}()
	if cfg.EventsBackend != "" && cfg.EventsBackend != config.EventsNone {
		logger.Info().Str("backend", cfg.EventsBackend).Msg("forwarding referral events")
	}

	if cfg.SeedOnStart {
		if _, err := a.seeder.Run(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to load sample data")
		}
	}

	e := newServer(cfg, logger, a, pool)

	// Graceful shutdown
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

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
