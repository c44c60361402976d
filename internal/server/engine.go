package server

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/proofscan/proof-manager/internal/middleware"
	"github.com/proofscan/proof-manager/pkg/api"
	"github.com/proofscan/proof-manager/pkg/catalog"
	"github.com/proofscan/proof-manager/pkg/cluster"
	"github.com/proofscan/proof-manager/pkg/dashboard"
	"github.com/proofscan/proof-manager/pkg/health"
	"github.com/proofscan/proof-manager/pkg/team"
)

type Handlers struct {
	Cluster   cluster.Handler
	Api       api.Handler
	Dashboard dashboard.Handler
	Team      team.Handler
	Catalog   catalog.Handler
}

func GetEngine(logger *slog.Logger, basePath string, authenticationMiddleware middleware.AuthenticationMiddleware, authorizationMiddleware middleware.AuthorizationMiddleware, handlers Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("authorization")
	r.Use(cors.New(corsConfig))

	r.Use(otelgin.Middleware("proof-manager"))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.ErrorHandler())

	router := r.Group(basePath)

	router.GET("/health", health.Health)

	cluster.Routes(router, authenticationMiddleware, handlers.Cluster)
	api.Routes(router, authenticationMiddleware, handlers.Api)
	dashboard.Routes(router, authenticationMiddleware, handlers.Dashboard)
	team.Routes(router, authenticationMiddleware, authorizationMiddleware, handlers.Team)
	catalog.Routes(router, handlers.Catalog)

	return r
}
