package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/pf-nexus/papermark/internal/config"
	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/handler"
	"github.com/pf-nexus/papermark/internal/handoff"
	"github.com/pf-nexus/papermark/internal/interceptor"
	"github.com/pf-nexus/papermark/internal/logger"
	"github.com/pf-nexus/papermark/internal/observability"
	"github.com/pf-nexus/papermark/internal/port"
	"github.com/pf-nexus/papermark/internal/repository/postgres"
	"github.com/pf-nexus/papermark/internal/router"
	"github.com/pf-nexus/papermark/internal/service"
	"github.com/pf-nexus/papermark/internal/session"
	"github.com/pf-nexus/papermark/internal/upstream/pfnexus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)

	db, err := postgres.NewDB(context.Background(), &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Handoff replay store: Redis when configured, in-process otherwise
	var (
		handoffs port.HandoffStore
		redisH   handler.Pinger
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		store := handoff.NewRedisStore(client)
		handoffs, redisH = store, store
	} else {
		if cfg.Bridge.Mode == domain.BridgeModeHandoff && cfg.Deployment.Shared {
			log.Warn("handoff mode without redis; replay protection is per instance")
		}
		handoffs = handoff.NewMemoryStore()
	}

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Session primitives
	codec := session.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer)
	identity := session.IdentityFor(cfg.Deployment)
	cookies := session.NewBuilder(identity)
	auth := session.NewAuthenticator(codec, identity)

	// Repositories and upstream
	userRepo := postgres.NewUserRepo(db)
	accountRepo := postgres.NewAccountRepo(db)
	validator := pfnexus.NewValidator(cfg.Upstream.BaseURL, cfg.Upstream.SessionCookie, cfg.Upstream.Timeout)

	bridgeSvc := service.NewBridgeService(validator, userRepo, accountRepo, handoffs, codec, service.BridgeSettings{
		Mode:          cfg.Bridge.Mode,
		SessionMaxAge: cfg.JWT.SessionMaxAge,
		HandoffTTL:    cfg.JWT.HandoffTTL,
	}, metrics)

	// Handlers
	templates, err := handler.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	bridgeH := handler.NewBridgeHandler(bridgeSvc, auth, cookies, handler.BridgeSettings{
		UpstreamCookie:  cfg.Upstream.SessionCookie,
		CompletionPath:  cfg.Federation.CompletionPath,
		DefaultCallback: cfg.Federation.DefaultCallback,
		LoginPath:       cfg.Federation.LoginPath,
		SessionMaxAge:   cfg.JWT.SessionMaxAge,
		HandoffTTL:      cfg.JWT.HandoffTTL,
	}, log, metrics)
	pageH := handler.NewPageHandler(cfg.Federation.DefaultCallback, cfg.Federation.LoginPath)
	healthH := handler.NewHealthHandler(db, redisH)

	r := router.Setup(router.Deps{
		Config:      cfg,
		Log:         log,
		Templates:   templates,
		Interceptor: interceptor.New(cfg.Federation, cfg.Upstream.SessionCookie, auth),
		Auth:        auth,
		Metrics:     metrics,
		Registry:    registry,
		BridgeH:     bridgeH,
		PageH:       pageH,
		HealthH:     healthH,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        cfg.Server.Port,
			"bridge_mode": cfg.Bridge.Mode,
			"cookie":      identity.Name,
			"domain":      identity.Domain,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
