package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/print-price-matrix/api/openapi"
	"github.com/donaldgifford/print-price-matrix/internal/api/handlers"
	"github.com/donaldgifford/print-price-matrix/internal/api/middleware"
	"github.com/donaldgifford/print-price-matrix/internal/config"
	"github.com/donaldgifford/print-price-matrix/internal/extraction"
	"github.com/donaldgifford/print-price-matrix/internal/observability"
	"github.com/donaldgifford/print-price-matrix/internal/retention"
	"github.com/donaldgifford/print-price-matrix/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: "Starts the HTTP control surface for extraction jobs, the progress event\n" +
		"stream, run history (when a database is configured), and retention.",
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing, Version, logger)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	var st *store.PostgresStore
	if cfg.Database.Enabled() {
		st, err = store.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer st.Close()
		logger.Info("run history enabled", "db_host", cfg.Database.Host)
	}

	advisor, closeAdvisor, err := newAdvisor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAdvisor()

	broadcaster := extraction.NewBroadcaster(cfg.Extraction.SubscriberBuffer)
	managerOpts := []extraction.ManagerOption{
		extraction.WithBroadcaster(broadcaster),
		extraction.WithOutputDir(cfg.Extraction.OutputDir),
		extraction.WithBaseContext(ctx),
		extraction.WithNotifier(newNotifier(cfg, logger)),
		extraction.WithManagerLogger(logger),
	}
	if st != nil {
		managerOpts = append(managerOpts, extraction.WithRecorder(st))
	}
	if advisor != nil {
		managerOpts = append(managerOpts, extraction.WithMappingAdvisor(advisor))
	}
	pricer := newPricer(cfg, logger)
	manager := extraction.NewManager(newController(cfg, pricer, logger), managerOpts...)

	deps := serverDeps{
		manager:     manager,
		broadcaster: broadcaster,
	}
	if st != nil {
		deps.store = st
	}
	if rl := pricer.RateLimiter(); rl != nil {
		deps.quota = rl
	}
	if advisor != nil {
		deps.assist = advisor
	}

	if cfg.Retention.Enabled && st != nil {
		sched, err := newRetention(ctx, cfg, st, logger)
		if err != nil {
			return err
		}
		defer func() { <-sched.Stop().Done() }()
		deps.retention = sched
	}

	e := newServer(cfg, logger, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		extraction.LogProgress(gctx, broadcaster, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}

		manager.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// serverDeps are the components routes are registered against. Optional
// fields stay nil when the feature is not configured.
type serverDeps struct {
	manager     *extraction.Manager
	broadcaster *extraction.Broadcaster
	store       store.Store
	quota       handlers.QuotaSource
	assist      handlers.AssistUsage
	retention   handlers.RetentionRunner
}

// newServer builds the Echo instance with middleware, probes, metrics, and
// every API route.
func newServer(cfg *config.Config, logger *slog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(
		middleware.Recovery(logger),
		middleware.RequestLog(logger),
		middleware.Metrics(),
		middleware.Tracing(nil),
		middleware.Streaming(),
	)

	var pinger handlers.Pinger
	if deps.store != nil {
		pinger = deps.store
	}
	health := handlers.NewHealthHandler(pinger)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	humaCfg := huma.DefaultConfig("Print Price Matrix API", Version)
	humaCfg.Info.Description = "Control surface for combinatorial price extraction jobs."
	api := humaecho.New(e, humaCfg)

	handlers.RegisterExtractionRoutes(api, handlers.NewExtractionHandler(deps.manager))
	handlers.RegisterEventRoutes(api, handlers.NewEventsHandler(deps.broadcaster))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(deps.quota))
	handlers.RegisterSystemStateRoutes(api,
		handlers.NewSystemStateHandler(deps.manager, deps.assist, deps.store != nil))
	if deps.store != nil {
		handlers.RegisterRunRoutes(api, handlers.NewRunsHandler(deps.store))
		handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(deps.store))
	}
	if deps.retention != nil {
		handlers.RegisterTriggerRoutes(api, handlers.NewRetentionHandler(deps.retention))
	}

	openapi.RegisterRoutes(e, api)
	return e
}

func newRetention(
	ctx context.Context,
	cfg *config.Config,
	st store.Store,
	logger *slog.Logger,
) (*retention.Scheduler, error) {
	opts := []retention.Option{retention.WithLogger(logger)}
	if cfg.Retention.PruneOutputs {
		opts = append(opts, retention.WithOutputDir(cfg.Extraction.OutputDir))
	}

	sched, err := retention.NewScheduler(st, cfg.Retention.Interval, cfg.Retention.MaxAge, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating retention scheduler: %w", err)
	}

	sched.RecoverStaleJobRuns(ctx)
	sched.Start()
	return sched, nil
}

// exitOnSignal is used by one-shot commands to translate an interrupt into
// a canceled context.
func exitOnSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
