package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"

	"news_collector/internal/api"
	"news_collector/internal/config"
	"news_collector/internal/domain"
	"news_collector/internal/harvester"
	"news_collector/internal/metrics"
	"news_collector/internal/publisher"
	"news_collector/internal/scheduler"
	"news_collector/internal/service"
	"news_collector/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single collection and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	sourceStore := postgres.NewSourceStore(db)
	logStore := postgres.NewCollectionLogStore(db)
	articleStore := postgres.NewArticleStore(db)
	txManager := postgres.NewTransactionManager(db)

	harvesters := harvester.NewFactory(cfg.HTTP.Timeout, logger)
	factory := func(src domain.Source) (service.Harvester, error) {
		h, err := harvesters.ForSource(src)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	collector := service.NewCollector(
		sourceStore,
		logStore,
		articleStore,
		txManager,
		factory,
		pub,
		metrics.NewRecorder(),
		logger,
		cfg.Collection,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		if err := runOnce(ctx, collector, cfg.Collection.RunTimeout, logger); err != nil {
			logger.Error("collection failed", "error", err)
			os.Exit(1)
		}
		return
	}

	e := newServer(api.New(collector, logStore, articleStore, cfg.Collection.RunTimeout, logger), logger)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting news collector",
		"interval", cfg.Collection.Interval,
		"timezone", cfg.Collection.Location().String(),
		"publisher", cfg.RabbitMQ.Enabled,
	)

	sched := scheduler.NewScheduler(collector, cfg.Collection.Interval, cfg.Collection.RunTimeout, logger)
	schedErr := sched.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	if schedErr != nil && !errors.Is(schedErr, context.Canceled) {
		logger.Error("scheduler error", "error", schedErr)
		os.Exit(1)
	}
	logger.Info("news collector stopped")
}

func runOnce(ctx context.Context, collector *service.Collector, timeout time.Duration, logger *slog.Logger) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := collector.Collect(runCtx)
	if err != nil {
		return err
	}

	for _, r := range results {
		logger.Info("source result",
			"source", r.SourceName,
			"status", r.Status,
			"articles", r.ArticlesCollected,
			"error", r.ErrorMessage,
		)
	}
	return nil
}

func newServer(h *api.Handler, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))

	h.Register(e)
	return e
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
