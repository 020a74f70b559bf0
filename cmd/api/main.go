package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/planrelay/configs"
	"github.com/navid-fn/planrelay/internal/crm"
	"github.com/navid-fn/planrelay/internal/events"
	"github.com/navid-fn/planrelay/internal/handler"
	"github.com/navid-fn/planrelay/internal/logger"
	"github.com/navid-fn/planrelay/internal/router"
	"github.com/navid-fn/planrelay/internal/service"
)

func main() {
	cfg := configs.AppLoad()
	log := logger.New(cfg.Log)
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	creds := crm.Credentials{APIKey: cfg.CRM.APIKey, LocationID: cfg.CRM.LocationID}
	if err := creds.Validate(); err != nil {
		log.WithError(err).Warn("crm credentials missing, submissions will fail until configured")
	}

	httpConfig := crm.DefaultHTTPConfig(cfg.CRM.BaseURL, cfg.CRM.RequestsPerSecond)
	httpConfig.APIVersion = cfg.CRM.APIVersion
	httpConfig.RequestTimeout = cfg.CRM.Timeout
	client := crm.NewClient(httpConfig, creds, log)

	publisher := buildPublisher(cfg.Kafka, log)
	defer publisher.Close()

	planService := service.NewPlanService(client, publisher, service.Options{
		Tag:        cfg.Plan.Tag,
		RefreshTag: cfg.Plan.RefreshTag,
		FieldMode:  cfg.CRM.FieldMode,
	}, log)
	planHandler := handler.NewPlanHandler(planService, log)

	routerConfig := &router.Config{
		PlanHandler:   planHandler,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Logger:        log,
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.NewRouter(routerConfig),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":       srv.Addr,
			"field_mode": cfg.CRM.FieldMode,
			"tag":        cfg.Plan.Tag,
		}).Info("plan relay listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func buildPublisher(cfg configs.KafkaConfig, log *logrus.Logger) events.Publisher {
	if !cfg.Enabled() {
		log.Info("KAFKA_BROKER not set, delivery events disabled")
		return events.NopPublisher{}
	}
	publisher, err := events.NewKafkaPublisher(cfg, log)
	if err != nil {
		log.WithError(err).Warn("failed to create kafka producer, delivery events disabled")
		return events.NopPublisher{}
	}
	log.WithFields(logrus.Fields{"broker": cfg.Broker, "topic": cfg.Topic}).Info("publishing delivery events to kafka")
	return publisher
}
