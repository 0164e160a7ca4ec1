package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/apiserver/handler"
	"github.com/amoylab/hydrowatch/internal/apiserver/middleware"
	"github.com/amoylab/hydrowatch/internal/apiserver/scheduler"
	"github.com/amoylab/hydrowatch/internal/auth/jwt"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/amoylab/hydrowatch/internal/i18n"
	"github.com/amoylab/hydrowatch/internal/mailer"
	"github.com/amoylab/hydrowatch/internal/realtime"
	"github.com/amoylab/hydrowatch/pkg/logger"
	"github.com/amoylab/hydrowatch/pkg/metrics"
	"github.com/amoylab/hydrowatch/pkg/trace"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const limiterIdle = 10 * time.Minute

func initLogger(cfg *config.APIServerConfig) *zap.Logger {
	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return lg
}

func initTracing(ctx context.Context, lg *zap.Logger, cfg *config.TracingConfig) func(context.Context) error {
	shutdown, err := trace.InitTracing(ctx, cfg, lg)
	if err != nil {
		lg.Warn("Tracing disabled", zap.Error(err))
		return func(context.Context) error { return nil }
	}
	return shutdown
}

func initDatabase(lg *zap.Logger, cfg *config.DatabaseConfig) database.Database {
	db, err := database.NewDatabase(cfg, lg)
	if err != nil {
		lg.Fatal("Failed to initialize database", zap.String("type", cfg.Type), zap.Error(err))
	}
	return db
}

// initSuperAdmin creates the configured Super Admin on an empty install
func initSuperAdmin(ctx context.Context, lg *zap.Logger, db database.Database, cfg *config.SuperAdminConfig) error {
	if cfg.Username == "" || cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	created, err := database.InitSuperAdmin(ctx, db, cfg.Username, cfg.Email, string(hash))
	if err != nil {
		return err
	}
	if created {
		lg.Info("Created super admin", zap.String("username", cfg.Username))
	}
	return nil
}

// initI18n loads the embedded translations plus the optional override directory
func initI18n(cfg *config.I18nConfig) *i18n.I18n {
	tr, err := i18n.New(cfg.DefaultLang)
	if err != nil {
		log.Fatalf("Failed to initialize i18n: %v", err)
	}
	if cfg.Path != "" {
		if err := tr.LoadTranslations(cfg.Path); err != nil {
			log.Printf("Failed to load translations from %s: %v", cfg.Path, err)
		}
	}
	return tr
}

// app holds the long-lived services of the process
type app struct {
	cfg     *config.APIServerConfig
	logger  *zap.Logger
	errs    *errorx.ErrorHandler
	metrics *metrics.Metrics
	cors    *middleware.CORS
	limiter *middleware.RateLimiter
	handler *handler.Handler

	realtime  *realtime.Service
	broker    realtime.Broker
	amqp      *realtime.AMQPSource
	consumer  *realtime.Consumer
	scheduler *scheduler.Scheduler
}

func initApp(ctx context.Context, lg *zap.Logger, cfg *config.APIServerConfig, db database.Database) (*app, error) {
	a := &app{cfg: cfg, logger: lg, errs: errorx.NewErrorHandler(lg)}

	jwtSvc, err := jwt.NewService(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	tr := initI18n(&cfg.I18n)

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics)
	}
	a.cors = middleware.NewCORS(cfg.CORS.AllowOrigins)
	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, a.errs)
		a.limiter.StartCleanup(ctx, limiterIdle)
	}

	m, err := mailer.New(cfg.Mail, lg)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	outbox := mailer.NewOutbox(db, m, a.metrics, cfg.Mail.MaxAttempts, lg)

	a.broker, err = realtime.NewBroker(cfg, lg)
	if err != nil {
		return nil, err
	}
	hub := realtime.NewHub(lg, a.metrics, cfg.Realtime.PingInterval, a.cors.Allowed)
	alerter := realtime.NewAlerter(db, cfg.Realtime.Thresholds, cfg.Realtime.AlertWindow, lg)
	a.realtime = realtime.NewService(hub, a.broker, alerter, a.metrics, lg)
	if err := a.realtime.Start(ctx); err != nil {
		return nil, fmt.Errorf("realtime: %w", err)
	}

	if cfg.Realtime.AMQPEnabled {
		a.amqp, err = realtime.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return nil, err
		}
		a.consumer = realtime.NewConsumer(a.amqp, a.realtime.Ingest, lg)
		if err := a.consumer.Start(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(cfg.Scheduler, db, outbox, tr, time.Local, lg)
		if err := a.scheduler.Start(); err != nil {
			return nil, err
		}
	}

	a.handler = handler.New(handler.Options{
		DB:       db,
		JWT:      jwtSvc,
		Auth:     middleware.NewAuthenticator(jwtSvc, db, a.errs),
		Errors:   a.errs,
		Outbox:   outbox,
		Composer: mailer.NewComposer(tr, cfg.Mail.VerifyURL),
		I18n:     tr,
		Realtime: a.realtime,
		Metrics:  a.metrics,
		Config:   cfg,
		Logger:   lg,
	})
	return a, nil
}

// stop waits for background jobs
func (a *app) stop(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.consumer != nil {
		select {
		case <-a.consumer.Done():
		case <-ctx.Done():
		}
	}
}

func (a *app) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("Failed to close rabbitmq connection", zap.Error(err))
		}
	}
	if err := a.broker.Close(); err != nil {
		a.logger.Warn("Failed to close realtime broker", zap.Error(err))
	}
}

func initRouter(a *app) *gin.Engine {
	if a.cfg.Server.Mode != "" {
		gin.SetMode(a.cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.TraceID(), a.errs.RecoveryMiddleware())
	if a.cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(a.cfg.Tracing.ServiceName))
	}
	if a.metrics != nil {
		r.Use(a.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}
	r.Use(a.cors.Handler())

	a.handler.Register(r, a.limiter)
	r.NoRoute(a.errs.NoRoute)
	return r
}
