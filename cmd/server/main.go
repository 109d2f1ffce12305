package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/dispatch"
	"github.com/anonto42/nano-midea/relay/internal/events"
	"github.com/anonto42/nano-midea/relay/internal/middleware"
	"github.com/anonto42/nano-midea/relay/internal/push"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/anonto42/nano-midea/relay/internal/router"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/anonto42/nano-midea/relay/pkg/config"
	"github.com/anonto42/nano-midea/relay/pkg/firebase"
	"github.com/anonto42/nano-midea/relay/pkg/logger"
	"github.com/anonto42/nano-midea/relay/validators"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	bootLog := logrus.New()
	config.LoadEnv(bootLog)
	cfg := config.Load()
	log := logger.New(cfg.IsProduction(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize databases")
	}
	defer db.CloseDB()

	if err := repositories.AutoMigrate(db.Postgres); err != nil {
		log.WithError(err).Fatal("Failed to auto migrate models")
	}
	log.Info("PostgreSQL auto-migrations completed.")

	var topics repositories.TopicRepository
	if db.Mongo != nil {
		mongoTopics := repositories.NewMongoTopicRepository(db.Mongo.Database(cfg.MongoDB))
		if err := mongoTopics.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("Failed to create topic indexes")
		}
		topics = mongoTopics
	}

	// Initialize Firebase when auth or delivery needs it
	var firebaseApp *firebase.App
	if cfg.AuthMode == "firebase" || cfg.PushProvider == "fcm" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize Firebase")
		}
	}

	provider, err := newProvider(cfg, firebaseApp)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure push provider")
	}

	follows := services.NewFollowService(repositories.NewPostgresFollowRepository(db.Postgres), log)
	subscriptions := services.NewSubscriptionService(repositories.NewPostgresSubscriptionRepository(db.Postgres), log)
	if cfg.PushProvider == "webpush" {
		subscriptions.RequireKeys(push.ValidateKeys)
	}
	accounts := services.NewAccountService(follows, subscriptions, topics, log)

	dispatcher := dispatch.NewService(follows, subscriptions, topics, provider, dispatch.Config{
		Concurrency:      cfg.DispatchWorkers,
		DeliveryTimeout:  cfg.PushTimeout,
		FollowerPageSize: cfg.FollowerPageSize,
		MessageTTL:       cfg.PushTTL,
	}, log)

	var auth echo.MiddlewareFunc
	switch cfg.AuthMode {
	case "firebase":
		auth = middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient)
	default:
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET must be set when AUTH_MODE is jwt")
		}
		auth = middleware.JWTAuthMiddleware(cfg.JWTSecret)
	}

	var subscriber *events.DispatchSubscriber
	if cfg.NATSURL != "" {
		client, err := events.NewClient(events.Config{URL: cfg.NATSURL, ClientID: cfg.NATSClientID}, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to NATS")
		}
		subscriber = events.NewDispatchSubscriber(ctx, client, dispatcher, 2*time.Minute, log)
		if err := subscriber.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start dispatch subscriber")
		}
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log)
	router.SetupRoutes(e, router.Dependencies{
		Follows:       follows,
		Subscriptions: subscriptions,
		Accounts:      accounts,
		Dispatcher:    dispatcher,
		Topics:        topics,
		Health:        db,
		Auth:          auth,
		InternalToken: cfg.InternalToken,
	}, log)

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if subscriber != nil {
		if err := subscriber.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to drain NATS subscription")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}

func newProvider(cfg *config.Config, app *firebase.App) (push.Provider, error) {
	switch cfg.PushProvider {
	case "fcm":
		return push.NewFCMProvider(app.MessagingClient), nil
	case "webpush":
		vapid := push.VAPIDConfig{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		}
		if err := vapid.Validate(); err != nil {
			return nil, err
		}
		return push.NewWebPushProvider(vapid, &http.Client{}), nil
	default:
		return nil, errors.Errorf("unknown PUSH_PROVIDER %q", cfg.PushProvider)
	}
}
