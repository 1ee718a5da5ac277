package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/elihu-analytics/clinic-scheduler/internal/api"
	"github.com/elihu-analytics/clinic-scheduler/internal/appointments"
	appconfig "github.com/elihu-analytics/clinic-scheduler/internal/config"
	"github.com/elihu-analytics/clinic-scheduler/internal/events"
	"github.com/elihu-analytics/clinic-scheduler/internal/notify"
	"github.com/elihu-analytics/clinic-scheduler/internal/observability/metrics"
	"github.com/elihu-analytics/clinic-scheduler/internal/sweep"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic scheduler", "env", cfg.Env, "port", cfg.Port)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	schedMetrics := metrics.NewSchedulerMetrics(reg)

	// Event fan-out: state transitions land in the outbox table and the
	// deliverer pushes them to live websocket sessions.
	outbox := events.NewOutboxStore(pool)
	hub := events.NewHub(logger)
	deliverer := events.NewDeliverer(outbox, hub, logger)

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("sendgrid not configured, appointment emails disabled")
	}
	notifier := notify.NewService(emailSender, notify.NewPGDirectory(pool), cfg.PracticeName, cfg.PracticeEmail, logger)

	store := appointments.NewStore(pool)
	scheduler := appointments.NewScheduler(store, logger).
		WithPatients(appointments.NewPatientStore(pool)).
		WithRules(appointments.Rules{
			DisplacementBuffer:  cfg.DisplacementBuffer,
			DefaultDuration:     cfg.DefaultDuration,
			ConfirmCutoff:       cfg.ConfirmCutoff,
			WorkdayStart:        cfg.WorkdayStart,
			WorkdayEnd:          cfg.WorkdayEnd,
			WorkdayEndShortDays: cfg.WorkdayEndShortDays,
			SlotStep:            cfg.SlotStep,
		}).
		WithNotifier(notifier).
		WithPublisher(outbox).
		WithMetrics(schedMetrics)

	var lease *sweep.Lease
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
		lease = sweep.NewLease(redisClient, cfg.SweepLeaseTTL)
	} else {
		logger.Warn("redis not configured, sweeps run without a lease")
	}

	completer := sweep.NewCompleter(scheduler, logger).
		WithInterval(cfg.CompletionInterval).
		WithLease(lease).
		WithMetrics(schedMetrics)
	reminder := sweep.NewReminder(store, notifier, notify.NewSentLog(pool), logger).
		WithInterval(cfg.ReminderInterval).
		WithLead(cfg.ReminderLead).
		WithHalfWindow(cfg.ReminderHalfWindow).
		WithNightPass(cfg.NightReminderAt, cfg.EarlyMorningCutoff).
		WithLease(lease).
		WithMetrics(schedMetrics)

	go deliverer.Start(ctx)
	go completer.Run(ctx)
	go reminder.Run(ctx)

	router := api.New(&api.Config{
		Logger:         logger,
		Scheduler:      api.NewHandler(scheduler, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		LiveHandler:    hub,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
