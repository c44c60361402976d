package api

import (
	"github.com/gin-gonic/gin"
)

type AuthenticationMiddleware interface {
	ApiKeyAuthentication(c *gin.Context)
}

func Routes(r *gin.RouterGroup, authenticationMiddleware AuthenticationMiddleware, handler Handler) {
	v1 := r.Group("/v1")
	v1.GET("/clusters", handler.FindAllClusters)
	v1.GET("/proofs", handler.FindRecentProofs)

	teamRestrictedRouter := v1.Group("")
	teamRestrictedRouter.Use(authenticationMiddleware.ApiKeyAuthentication)
	teamRestrictedRouter.PATCH("/clusters/:index", handler.UpdateCluster)
	teamRestrictedRouter.POST("/proofs/queued", handler.ProofQueued)
	teamRestrictedRouter.POST("/proofs/proving", handler.ProofProving)
	teamRestrictedRouter.POST("/proofs/proved", handler.ProofProved)
}
