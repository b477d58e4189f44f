package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calibration-backend/config"
	"calibration-backend/controllers"
	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/routes"
	"calibration-backend/services"
	"calibration-backend/services/lock"
	"calibration-backend/services/printer"
	"calibration-backend/services/transport"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, "calibration-backend")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}()

	store := repository.New(db.DB)
	if err := store.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	locker, closeLock, err := newLocker(cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeLock()

	transports := newTransports(cfg, logger)
	emailSender, err := transports.For(models.ChannelEmail)
	if err != nil {
		return fmt.Errorf("email transport: %w", err)
	}
	clock := time.Now

	certificates := services.NewCertificateService(
		store,
		printer.NewGenerator(cfg.UploadDir),
		services.NewNumberer(cfg.Certificate.Prefix, clock, rand.New(rand.NewSource(time.Now().UnixNano()))),
		cfg.Certificate.OrgName,
		clock,
		logger,
	)
	notifications := services.NewNotificationService(store, transports, locker, clock,
		cfg.Notifications.ReminderDaysBefore, cfg.Certificate.OrgName, logger)
	auth := services.NewAuthService(store, emailSender, cfg.JWTSecret, cfg.JWTExpiry, clock, logger)

	startup, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	summary, err := certificates.RegenerateMissing(startup)
	cancel()
	if err != nil {
		logger.Warn("startup pdf regeneration failed", zap.Error(err))
	} else if summary.Regenerated > 0 || len(summary.Failed) > 0 {
		logger.Info("startup pdf regeneration",
			zap.Int("regenerated", summary.Regenerated),
			zap.Uints("failed", summary.Failed))
	}

	scheduler, err := services.NewScheduler(notifications,
		cfg.Notifications.ScanSchedule, cfg.Notifications.DispatchSchedule,
		cfg.Notifications.BatchSize, logger)
	if err != nil {
		return err
	}

	router := routes.SetupRouter(routes.Deps{
		Config:        cfg,
		Logger:        logger,
		Auth:          controllers.NewAuthController(auth, logger),
		Customers:     controllers.NewCustomerController(services.NewCustomerService(store, logger), logger),
		Instruments:   controllers.NewInstrumentController(services.NewInstrumentService(store, logger), logger),
		TestEquipment: controllers.NewTestEquipmentController(services.NewEquipmentService(store, clock, logger), logger),
		Staff:         controllers.NewCalibrationStaffController(services.NewStaffService(store, logger), cfg.UploadDir, logger),
		Certificates:  controllers.NewCertificateController(certificates, logger),
		Notifications: controllers.NewNotificationController(notifications, logger),
		Reports:       controllers.NewReportController(services.NewReportService(store, clock, logger), logger),
	})
	for _, route := range router.Routes() {
		logger.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return serveErr
}

// newLocker shares the dispatch lock through redis when REDIS_URL is set.
func newLocker(url string, logger *zap.Logger) (lock.Locker, func(), error) {
	if url == "" {
		return lock.NewLocal(), func() {}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	logger.Info("using redis dispatch lock", zap.String("addr", opts.Addr))
	return lock.NewRedis(client), func() { _ = client.Close() }, nil
}

func newTransports(cfg *config.Config, logger *zap.Logger) *transport.Registry {
	reg := transport.NewRegistry()

	if cfg.SMTP.Host != "" {
		reg.Register(models.ChannelEmail, transport.NewEmailSender(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From))
	} else {
		logger.Warn("SMTP not configured; email notifications will fail")
		reg.Register(models.ChannelEmail, transport.Unconfigured(models.ChannelEmail))
	}

	tw := cfg.Twilio
	if tw.AccountSID != "" && tw.AuthToken != "" && tw.PhoneNumber != "" {
		reg.Register(models.ChannelSMS, transport.NewSMSSender(tw.AccountSID, tw.AuthToken, tw.PhoneNumber, logger))
		reg.Register(models.ChannelWhatsApp, transport.NewWhatsAppSender(tw.AccountSID, tw.AuthToken, tw.WhatsAppNumber, logger))
	} else {
		logger.Warn("Twilio not configured; SMS and WhatsApp notifications will fail")
		reg.Register(models.ChannelSMS, transport.Unconfigured(models.ChannelSMS))
		reg.Register(models.ChannelWhatsApp, transport.Unconfigured(models.ChannelWhatsApp))
	}

	if cfg.PushURL != "" {
		reg.Register(models.ChannelPush, transport.NewPushSender(cfg.PushURL))
	} else {
		reg.Register(models.ChannelPush, transport.LogPush(logger))
	}
	return reg
}
