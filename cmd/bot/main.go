package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notifyhub/role-manager-bot/internal/api"
	"github.com/notifyhub/role-manager-bot/internal/bot"
	"github.com/notifyhub/role-manager-bot/internal/config"
	"github.com/notifyhub/role-manager-bot/internal/db"
	"github.com/notifyhub/role-manager-bot/internal/metrics"
	"github.com/notifyhub/role-manager-bot/internal/notifier"
	"github.com/notifyhub/role-manager-bot/internal/provider"
	"github.com/notifyhub/role-manager-bot/internal/queue"
	"github.com/notifyhub/role-manager-bot/internal/ratelimiter"
	"github.com/notifyhub/role-manager-bot/internal/repository"
	"github.com/notifyhub/role-manager-bot/internal/service"
	"github.com/notifyhub/role-manager-bot/internal/worker"
)

// sweepGrace is how late a deletion timer may be before the sweep takes over.
const sweepGrace = time.Minute

func main() {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l, _ := zap.NewProduction()
		l.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	startedAt := time.Now()
	ctx := context.Background()

	// ---- ticket store ----
	var tickets repository.TicketRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		tickets = repository.NewPgTicketRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set: deletion tickets will not survive a restart")
		tickets = repository.NewMemoryTicketRepository()
	}

	// ---- core dependencies ----
	pending := queue.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, pending.Len)
	limiter := ratelimiter.New(cfg.RESTRateLimit)

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	platform := provider.NewDiscordPlatform(session, limiter)

	// Context for timers and background goroutines; cancelled on shutdown.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	scheduler := worker.NewAfterFuncScheduler(runCtx)

	// ---- self-deletion ----
	deletions := worker.NewDeletionWorker(tickets, platform, scheduler,
		logger.Named("deletion"), m.DeletionHook(),
		worker.WithSweep(cfg.SweepInterval, sweepGrace),
	)
	if err := deletions.Recover(ctx); err != nil {
		logger.Error("failed to recover deletion tickets", zap.Error(err))
	}
	go deletions.Run(runCtx)

	// ---- coalescing and notification ----
	n := notifier.New(platform, deletions, cfg.VerificationChannelID,
		cfg.RoleDestinations, cfg.MessageRetention, logger.Named("notifier"))

	onEnqueued, onTimerStarted, onSent, onFailed := m.CoalescingHooks()
	roleSvc := service.NewRoleNotificationService(pending, cfg.RoleDestinations, n, scheduler,
		cfg.SettleDelay, logger.Named("coalescing"), service.CoalescingHooks{
			OnEnqueued:     onEnqueued,
			OnTimerStarted: onTimerStarted,
			OnSent:         onSent,
			OnFailed:       onFailed,
		})

	memberSvc := service.NewMembershipService(platform, cfg.GuildID, cfg.JoinRoleID,
		cfg.ExcludedMemberIDs, logger.Named("membership"), m.JoinHook())
	announcer := service.NewAnnouncer(platform, cfg.StartupChannelID, logger.Named("announcer"))
	go memberSvc.Run(runCtx, cfg.ReconcileInterval)

	// ---- gateway ----
	b := bot.New(session, cfg.GuildID, platform, roleSvc, memberSvc, announcer, logger.Named("bot"),
		bot.WithMembersLoaded(memberSvc.ReconcileNow))
	if err := b.Open(runCtx); err != nil {
		logger.Fatal("failed to connect to discord", zap.Error(err))
	}
	logger.Info("bot connected",
		zap.String("guild_id", cfg.GuildID),
		zap.Int("role_destinations", cfg.RoleDestinations.Len()),
		zap.Duration("settle_delay", cfg.SettleDelay),
		zap.Duration("retention", cfg.MessageRetention),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
	)

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(roleSvc, tickets, reg, startedAt, logger.Named("http")),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("ops server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	// 1. Stop accepting new HTTP requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Announce and leave the gateway so no new events arrive.
	if err := b.Close(shutdownCtx); err != nil {
		logger.Error("gateway close error", zap.Error(err))
	}

	// 3. Abandon unfired timers and wait for running ones. Pending role
	// sets are dropped; persisted tickets are re-armed on next start.
	cancelRun()
	scheduler.Wait()

	logger.Info("bot stopped cleanly", zap.Int("abandoned_pending_members", pending.Len()))
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		l, _ := zap.NewDevelopment()
		return l
	}

	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build()
	if err != nil {
		l, _ = zap.NewProduction()
	}
	return l
}
