package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/api/routes"
	"github.com/jamiihub/jamii-portal-backend/internal/cache"
	"github.com/jamiihub/jamii-portal-backend/internal/config"
	"github.com/jamiihub/jamii-portal-backend/internal/handlers"
	mongorepo "github.com/jamiihub/jamii-portal-backend/internal/repositories/mongodb"
	"github.com/jamiihub/jamii-portal-backend/internal/services"
	"github.com/jamiihub/jamii-portal-backend/pkg/daraja"
	"github.com/jamiihub/jamii-portal-backend/pkg/mongodb"
	"github.com/jamiihub/jamii-portal-backend/pkg/pesapal"
	"github.com/jamiihub/jamii-portal-backend/pkg/smsgateway"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			slog.Error("mongodb disconnect failed", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := mongodb.EnsureIndexes(context.Background(), db); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	// an empty Redis URL leaves the cache nil, which disables it
	var statusCache *cache.Cache
	if cfg.Redis.URL != "" {
		statusCache, err = cache.New(cfg.Redis.URL, cfg.Payments.StatusCacheTTL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer statusCache.Close()
	} else {
		slog.Warn("redis url not set, caching disabled")
	}

	// Repositories
	txnRepo := mongorepo.NewTransactionRepository(db)
	contributionRepo := mongorepo.NewContributionRepository(db)
	memberRepo := mongorepo.NewMemberRepository(db)
	welfareRepo := mongorepo.NewWelfareCaseRepository(db)
	announcementRepo := mongorepo.NewAnnouncementRepository(db)
	notificationRepo := mongorepo.NewNotificationRepository(db)

	// Provider clients
	darajaClient := daraja.NewClient(
		cfg.Mpesa.BaseURL,
		cfg.Mpesa.ConsumerKey,
		cfg.Mpesa.ConsumerSecret,
		cfg.Mpesa.Shortcode,
		cfg.Mpesa.Passkey,
		cfg.Mpesa.CallbackURL,
		cfg.Mpesa.MockAPI,
	)
	pesapalClient := pesapal.NewClient(
		cfg.Pesapal.BaseURL,
		cfg.Pesapal.ConsumerKey,
		cfg.Pesapal.ConsumerSecret,
		cfg.Pesapal.CallbackURL,
		cfg.Pesapal.IPNID,
		cfg.Pesapal.MockAPI,
	)

	var sms smsgateway.Gateway
	if cfg.SMS.MockSMS {
		sms = smsgateway.NewMockGateway()
	} else {
		sms = smsgateway.NewAfricasTalkingGateway(cfg.SMS.BaseURL, cfg.SMS.Username, cfg.SMS.APIKey, cfg.SMS.SenderID)
	}

	// Services
	paymentService := services.NewPaymentService(
		txnRepo, contributionRepo, welfareRepo, notificationRepo,
		darajaClient, pesapalClient, sms, statusCache,
		cfg.Payments.PollInterval,
	)
	memberService := services.NewMemberService(memberRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second)
	contributionService := services.NewContributionService(contributionRepo)
	welfareService := services.NewWelfareService(welfareRepo, notificationRepo)
	announcementService := services.NewAnnouncementService(announcementRepo, statusCache)
	notificationService := services.NewNotificationService(notificationRepo)

	deps := &routes.HandlerDependencies{
		PaymentHandler:      handlers.NewPaymentHandler(paymentService),
		MemberHandler:       handlers.NewMemberHandler(memberService),
		ContributionHandler: handlers.NewContributionHandler(contributionService),
		WelfareHandler:      handlers.NewWelfareHandler(welfareService),
		AnnouncementHandler: handlers.NewAnnouncementHandler(announcementService),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
	}

	router := routes.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}
