// Package classification proof-manager.
//
// Cluster and proof management service of the proof explorer
//
//    Version: 0.1.0
//    Contact: <info@proofscan.io> https://github.com/proofscan/proof-manager
//
//    Consumes:
//      - application/json
//      - multipart/form-data
//
//    Produces:
//      - application/json
//
//    SecurityDefinitions:
//      oauth2:
//        type: oauth2
//        tokenUrl: /not-valid--endpoint-is-served-from-the-auth-service
//        refreshUrl: /not-valid--endpoint-is-served-from-the-auth-service
//        flow: password
//      apiKey:
//        type: apiKey
//        in: header
//        name: Authorization
// swagger:meta
package main

import (
	"context"
	stdlog "log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/proofscan/proof-manager/internal/handler"
	"github.com/proofscan/proof-manager/internal/log"
	"github.com/proofscan/proof-manager/internal/middleware"
	"github.com/proofscan/proof-manager/internal/server"
	"github.com/proofscan/proof-manager/pkg/api"
	"github.com/proofscan/proof-manager/pkg/cache"
	"github.com/proofscan/proof-manager/pkg/catalog"
	"github.com/proofscan/proof-manager/pkg/cluster"
	"github.com/proofscan/proof-manager/pkg/config"
	"github.com/proofscan/proof-manager/pkg/dashboard"
	"github.com/proofscan/proof-manager/pkg/event"
	"github.com/proofscan/proof-manager/pkg/proof"
	"github.com/proofscan/proof-manager/pkg/storage"
	"github.com/proofscan/proof-manager/pkg/team"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	logger := slog.New(log.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		return err
	}

	if err := handler.RegisterValidation(); err != nil {
		return err
	}

	if cfg.JaegerURL != "" {
		shutdown, err := setupTracing(cfg.JaegerURL)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	db, err := storage.NewDatabase(logger, cfg.Postgresql)
	if err != nil {
		return err
	}

	redisClient, err := storage.NewRedis(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		return err
	}
	invalidator := cache.NewInvalidator(logger, redisClient)

	publisher, err := event.NewPublisher(logger, cfg.RabbitMqURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	s3Client, err := storage.NewS3ClientFromConfig(context.Background(), logger)
	if err != nil {
		return err
	}

	teamRepository := team.NewRepository(db)
	teamService := team.NewService(teamRepository)

	catalogRepository := catalog.NewRepository(db)
	catalogService := catalog.NewService(catalogRepository)

	clusterRepository := cluster.NewRepository(db)
	clusterService := cluster.NewService(logger, clusterRepository, catalogService, invalidator, publisher)

	proofRepository := proof.NewRepository(db)
	proofService := proof.NewService(logger, cfg.S3Bucket, proofRepository, clusterService, s3Client, publisher)

	authenticationMiddleware := middleware.NewAuthentication(cfg.AuthKey, teamService, cfg.AdminApiKey)
	authorizationMiddleware := middleware.NewAuthorization()

	handlers := server.Handlers{
		Cluster:   cluster.NewHandler(clusterService),
		Api:       api.NewHandler(clusterService, proofService),
		Dashboard: dashboard.NewHandler(clusterService),
		Team:      team.NewHandler(teamService),
		Catalog:   catalog.NewHandler(catalogService),
	}

	r := server.GetEngine(logger, cfg.BasePath, authenticationMiddleware, authorizationMiddleware, handlers)
	return r.Run()
}

func setupTracing(jaegerURL string) (func(), error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerURL)))
	if err != nil {
		return nil, err
	}

	provider := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("proof-manager"),
		)),
	)
	otel.SetTracerProvider(provider)

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("Failed to shut down tracer provider", "error", err)
		}
	}, nil
}
