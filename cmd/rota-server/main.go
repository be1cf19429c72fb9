package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rota/rota/internal/config"
	"github.com/rota/rota/internal/domain/catalog"
	"github.com/rota/rota/internal/domain/coverage"
	"github.com/rota/rota/internal/domain/history"
	"github.com/rota/rota/internal/domain/provider"
	"github.com/rota/rota/internal/domain/roster"
	"github.com/rota/rota/internal/domain/template"
	"github.com/rota/rota/internal/platform/auth"
	"github.com/rota/rota/internal/platform/db"
	"github.com/rota/rota/internal/platform/holiday"
	"github.com/rota/rota/internal/platform/metrics"
	"github.com/rota/rota/internal/platform/middleware"
	"github.com/rota/rota/internal/platform/override"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rota-server",
		Short: "Provider schedule API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the schedule API server",
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

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory")
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

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Holiday calendar: ICS feed when configured, US federal holidays
	// otherwise.
	holidays := loadHolidays(cfg, logger)

	// Override store: Redis when configured so grants survive restarts,
	// in-memory otherwise.
	overrideTTL := time.Duration(cfg.OverrideTTLMinutes) * time.Minute
	var overrides override.Store
	if cfg.RedisURL != "" {
		redisStore, err := override.NewRedisStore(ctx, cfg.RedisURL, overrideTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisStore.Close()
		overrides = redisStore
		logger.Info().Msg("using redis override store")
	} else {
		overrides = override.NewMemoryStore(overrideTTL)
		logger.Warn().Msg("using in-memory override store; grants reset on restart")
	}

	// Repositories
	providerRepo := provider.NewProviderRepoPG(pool)
	ruleRepo := provider.NewRuleRepoPG(pool)
	leaveRepo := provider.NewLeaveRepoPG(pool)
	serviceRepo := catalog.NewServiceRepoPG(pool)
	assignmentRepo := roster.NewAssignmentRepoPG(pool)
	dayRepo := roster.NewDayMetadataRepoPG(pool)
	templateRepo := template.NewRepoPG(pool)
	historyRepo := history.NewRepoPG(pool)

	// Services
	historyMgr := history.NewManagerWithNames(historyRepo, roster.NewHistoryStore(assignmentRepo),
		nameDirectory{providers: providerRepo, services: serviceRepo})
	catalogSvc := catalog.NewCatalog(serviceRepo)
	providerSvc := provider.NewService(providerRepo, ruleRepo, leaveRepo)
	rosterSvc := roster.NewRoster(assignmentRepo, dayRepo, ruleRepo, leaveRepo, serviceRepo, overrides, historyMgr)
	coverageSvc := coverage.NewService(providerRepo, serviceRepo, assignmentRepo, ruleRepo, leaveRepo)
	templateSvc := template.NewService(templateRepo, assignmentRepo, serviceRepo, holidays, historyMgr)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Secret:  []byte(cfg.AuthSecret),
			Issuer:  cfg.AuthIssuer,
			Skipper: auth.AuthSkipper,
		}))
	}

	// Operational endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	// API routes
	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	provider.NewHandler(providerSvc).RegisterRoutes(apiV1)
	roster.NewHandler(rosterSvc).RegisterRoutes(apiV1)
	coverage.NewHandler(coverageSvc).RegisterRoutes(apiV1)
	template.NewHandler(templateSvc).RegisterRoutes(apiV1)
	history.NewHandler(historyMgr).RegisterRoutes(apiV1)

	// Start and shut down cleanly on SIGINT/SIGTERM.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// nameDirectory resolves provider and service display names for drift
// reports. Lookup failures yield an empty name rather than an error.
type nameDirectory struct {
	providers provider.ProviderRepository
	services  catalog.ServiceRepository
}

func (d nameDirectory) ProviderName(ctx context.Context, id uuid.UUID) string {
	p, err := d.providers.GetByID(ctx, id)
	if err != nil || p == nil {
		return ""
	}
	return p.Name
}

func (d nameDirectory) ServiceName(ctx context.Context, id uuid.UUID) string {
	s, err := d.services.GetByID(ctx, id)
	if err != nil || s == nil {
		return ""
	}
	return s.Name
}

func loadHolidays(cfg *config.Config, logger zerolog.Logger) *holiday.Calendar {
	if cfg.HolidayICSFile != "" {
		cal := holiday.NewCalendar()
		n, err := cal.LoadICSFile(cfg.HolidayICSFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.HolidayICSFile).Msg("failed to load holiday calendar")
		}
		logger.Info().Int("holidays", n).Msg("loaded holiday calendar from ICS")
		return cal
	}
	year := time.Now().Year()
	return holiday.NewUSFederal(year-1, year+2)
}
