package cluster

import (
	"github.com/gin-gonic/gin"
)

type AuthenticationMiddleware interface {
	AdminTokenAuthentication(c *gin.Context)
}

func Routes(r *gin.RouterGroup, authenticationMiddleware AuthenticationMiddleware, handler Handler) {
	r.GET("/clusters", handler.FindAll)

	adminRestrictedRouter := r.Group("")
	adminRestrictedRouter.Use(authenticationMiddleware.AdminTokenAuthentication)
	adminRestrictedRouter.POST("/clusters", handler.Create)
	adminRestrictedRouter.GET("/clusters/:id", handler.Find)
	adminRestrictedRouter.PUT("/clusters/:id", handler.Update)
}
