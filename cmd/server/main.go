package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/whisperbox/internal/analytics"
	"github.com/ignite/whisperbox/internal/api"
	"github.com/ignite/whisperbox/internal/auth"
	"github.com/ignite/whisperbox/internal/classify"
	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/fingerprint"
	"github.com/ignite/whisperbox/internal/notify"
	"github.com/ignite/whisperbox/internal/pkg/distlock"
	"github.com/ignite/whisperbox/internal/pkg/logger"
	"github.com/ignite/whisperbox/internal/repository/postgres"
	"github.com/ignite/whisperbox/internal/service/blocklist"
	"github.com/ignite/whisperbox/internal/service/inbox"
	"github.com/ignite/whisperbox/internal/service/intake"
	"github.com/ignite/whisperbox/internal/service/profile"
	"github.com/ignite/whisperbox/internal/service/ratelimit"
	"github.com/ignite/whisperbox/internal/service/suspicion"
	"github.com/ignite/whisperbox/internal/service/visits"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	ln.Close()
	return nil
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		fatal("failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactPIIEnabled())

	if err := checkPortAvailable(cfg.Server.Addr()); err != nil {
		fatal("pre-flight check failed", err)
	}

	db, err := postgres.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime())
	if err != nil {
		fatal("database unavailable", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			fatal("invalid redis url", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis ping failed, continuing", "error", err)
		}
		defer redisClient.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := wire(ctx, cfg, db, redisClient)
	if err != nil {
		fatal("failed to initialise services", err)
	}
	server := api.NewServer(cfg.Server, deps)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr(), "notify_mode", cfg.Notifications.Mode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func wire(ctx context.Context, cfg *config.Config, db *sql.DB, redisClient *redis.Client) (api.Deps, error) {
	hasher, err := fingerprint.NewHasher(cfg.Fingerprint.Secret)
	if err != nil {
		return api.Deps{}, err
	}
	classifier := classify.New(cfg.Server.PublicHost)

	messages := postgres.NewMessageRepo(db)
	subs := postgres.NewSubscriptionRepo(db)
	profiles := profile.NewService(postgres.NewProfileRepo(db), subs)
	blocks := blocklist.NewService(postgres.NewBlockRepo(db), cfg.BlockList.FailOpenEnabled())
	limiter := ratelimit.NewLimiter(messages, ratelimit.Config{
		Limit:    cfg.RateLimit.Limit,
		Window:   cfg.RateLimit.Window(),
		FailOpen: cfg.RateLimit.FailOpenEnabled(),
	})
	detector := suspicion.NewDetector(suspicion.Thresholds{
		BurstWindow: cfg.Suspicion.BurstWindow(),
		BurstMedium: cfg.Suspicion.BurstMedium,
		BurstHigh:   cfg.Suspicion.BurstHigh,
		RepeatCount: cfg.Suspicion.RepeatCount,
		VolumeLow:   cfg.Suspicion.VolumeLow,
	})

	deliverer, err := notify.BuildDeliverer(ctx, cfg.Notifications, profiles, subs)
	if err != nil {
		return api.Deps{}, err
	}
	dispatcher, err := notify.NewDispatcher(ctx, cfg.Notifications, deliverer)
	if err != nil {
		return api.Deps{}, err
	}

	intakeDeps := intake.Deps{
		Profiles:   profiles,
		Messages:   messages,
		Blocks:     blocks,
		Limiter:    limiter,
		Hasher:     hasher,
		Classifier: classifier,
		Notifier:   dispatcher,
	}
	if cfg.RateLimit.SerializeSends {
		intakeDeps.Locker = distlock.NewKeyedLocker(redisClient, db, "whisperbox:send", cfg.RateLimit.LockTTL(), cfg.RateLimit.LockWait())
		logger.Info("per-sender send serialization enabled")
	}

	health := api.NewHealthChecker(db, redisClient)
	if cfg.Notifications.Mode == config.NotifyDisabled {
		health.AddProbe("notifications", false, api.StaticProbe("disabled", "dispatch disabled"))
	} else {
		health.AddProbe("notifications", false, api.StaticProbe("up", cfg.Notifications.Mode))
	}

	var stats api.VisitStats
	var recorder visits.Recorder
	if redisClient != nil && cfg.Analytics.Enabled {
		store := analytics.NewStore(redisClient, "whisperbox:visits", cfg.Analytics.Retention())
		stats, recorder = store, store
	}

	return api.Deps{
		Sender:         intake.NewPipeline(intakeDeps),
		Tracker:        visits.NewPipeline(postgres.NewVisitRepo(db), profiles, hasher, classifier, recorder),
		Inbox:          inbox.NewService(messages, detector),
		Blocks:         blocks,
		Profiles:       profiles,
		Analytics:      stats,
		Auth:           auth.NewVerifier(cfg.Auth),
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout(),
	}, nil
}
