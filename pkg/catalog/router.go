package catalog

import (
	"github.com/gin-gonic/gin"
)

func Routes(r *gin.RouterGroup, handler Handler) {
	r.GET("/zkvms", handler.FindAllZkvms)
	r.GET("/cloud-instances", handler.FindAllCloudInstances)
}
