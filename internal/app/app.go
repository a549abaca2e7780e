package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linkboard/linkboard/internal/config"
	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/httpserver"
	"github.com/linkboard/linkboard/internal/httpserver/deps"
	"github.com/linkboard/linkboard/internal/identity"
	"github.com/linkboard/linkboard/internal/ledger"
	"github.com/linkboard/linkboard/internal/lists"
	"github.com/linkboard/linkboard/internal/logger"
	"github.com/linkboard/linkboard/internal/redis"
	"github.com/linkboard/linkboard/internal/scheduler"
	"github.com/linkboard/linkboard/internal/sources/seed"
	redisstore "github.com/linkboard/linkboard/internal/store/redis"
	"github.com/linkboard/linkboard/internal/store/sqlite"
	"github.com/linkboard/linkboard/internal/updates"
	"github.com/linkboard/linkboard/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	db          *sqlite.Store
	retention   *scheduler.RetentionSweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Durable store
	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		loggerClient.Errorf("Failed to open database at %s: %v", cfg.DatabasePath, err)
		os.Exit(1)
	}
	loggerClient.Info("database opened",
		logger.String("path", cfg.DatabasePath))

	// Seed initial lists into a fresh database (optional)
	if cfg.SeedFile != "" {
		seeder := seed.NewSeeder(cfg.SeedFile, db, loggerClient)
		if err := seeder.Apply(context.Background()); err != nil {
			loggerClient.Warn("seeding failed, continuing with existing data",
				logger.Error(err))
		}
	}

	// Channel log + services
	channelLog := redisstore.NewChannelLogDepth(redisClient, cfg.ChannelLogDepth)
	publisher := events.NewPublisher(channelLog, loggerClient)
	activityLedger := ledger.New(db)
	listsSvc := lists.New(db, activityLedger, publisher, loggerClient, cfg.ProbeTimeout)
	updatesSvc := updates.New(db, loggerClient)

	// Retention sweeper for the activity ledger
	retention := scheduler.NewRetentionSweeper(
		db,
		loggerClient,
		cfg.RetentionInterval,
		cfg.RetentionMaxAge,
		cfg.RetentionKeep,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:    loggerClient,
		StartTime: time.Now(),
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.BuildDate,
		GoVersion: version.GoVersion,
		TimeNow:   time.Now,

		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,

		RedisClient: redisClient,
		DB:          db,

		Identity: identity.NewProvider(cfg.AuthSecret),
		Lists:    listsSvc,
		Updates:  updatesSvc,
		Ledger:   activityLedger,

		EventLog:      channelLog,
		StreamPoll:    cfg.StreamPollInterval,
		StreamGrace:   cfg.StreamGrace,
		ActivityLimit: cfg.ActivityLimit,

		ClickRateBurst:  cfg.ClickRateBurst,
		ClickRateRefill: cfg.ClickRateRefill,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		db:          db,
		retention:   retention,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Linkboard v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Linkboard %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start activity retention sweeper
	if err := a.retention.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}
	a.logger.Info("retention sweeper started",
		logger.Duration("interval", a.cfg.RetentionInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.retention.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warnf("failed to close database: %v", err)
		}
	}

	a.logger.Info("✅ Linkboard stopped cleanly")
	return nil
}
