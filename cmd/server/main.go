package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"appointment-service/internal/app"
	"appointment-service/internal/booking"
	"appointment-service/internal/calendar"
	"appointment-service/internal/config"
	"appointment-service/internal/logging"
	"appointment-service/internal/metrics"
	"appointment-service/internal/schedule"
	"appointment-service/internal/server"
	"appointment-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	loc, _ := cfg.Location()
	days, _ := cfg.DefaultWeekdays()
	def, err := schedule.DefaultSchedule(days, cfg.DefaultStart, cfg.DefaultEnd)
	if err != nil {
		logger.Fatal("invalid default schedule", zap.Error(err))
	}
	expander := schedule.NewExpander(schedule.ExpanderConfig{
		HorizonDays:    cfg.HorizonDays,
		MaxHorizonDays: cfg.MaxHorizonDays,
		SlotDuration:   cfg.SlotDuration(),
		Default:        def,
		Location:       loc,
	}, logger.Named("expander"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	db := store.New(pool)
	selections := booking.NewRedisSelectionStore(rdb, cfg.SessionTTL)
	availability := booking.NewAvailability(db, expander, bookingMetrics, logger.Named("availability"))

	var (
		mirror booking.CalendarMirror
		linker app.CalendarLinker
	)
	if cfg.CalendarEnabled() {
		oauthCfg := calendar.NewOAuthConfig(calendar.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		connector, err := calendar.NewConnector(oauthCfg, db, cfg.JWTSecret)
		if err != nil {
			logger.Fatal("invalid calendar config", zap.Error(err))
		}
		mirror = calendar.NewGoogleMirror(oauthCfg, db, logger.Named("calendar"))
		linker = connector
	} else {
		logger.Info("Google Calendar not configured, mirror disabled")
	}

	committer := booking.NewCommitter(booking.CommitterDeps{
		Writer:   db,
		Catalog:  db,
		Expander: expander,
		Store:    selections,
		Mirror:   mirror,
		Metrics:  bookingMetrics,
		Logger:   logger.Named("committer"),
	})
	wizard := booking.NewWizard(booking.WizardDeps{
		Store:        selections,
		Catalog:      db,
		Availability: availability,
		Committer:    committer,
		Metrics:      bookingMetrics,
		Logger:       logger.Named("wizard"),
	})

	appInstance := &app.App{
		Repo:         db,
		Expander:     expander,
		Availability: availability,
		Wizard:       wizard,
		Committer:    committer,
		Calendar:     linker,
		Logger:       logger,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		logging.Middleware(logger),
		logging.Recovery(logger),
		app.CORS(cfg.CORSOriginList()),
		app.RateLimit(cfg.RateLimitPerMin, logger),
	)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	appInstance.Register(router,
		app.AuthMiddleware(app.AuthConfig{JWTSecret: cfg.JWTSecret, StaticTokens: cfg.StaticTokenList()}),
		map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})

	if err := server.Run(ctx, cfg.Port, router, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}
