package routes

import (
	"github.com/devscore/integrity/presentation/controllers/proctor"
	"github.com/gin-gonic/gin"
)

func ProctorRoutes(router *gin.RouterGroup, controller proctor.ProctorController, limiter gin.HandlerFunc) {
	logs := router.Group("/proctor", limiter)
	{
		logs.POST("/log", controller.Log)
		logs.POST("/log/batch", controller.LogBatch)
		logs.POST("/batch-log", controller.LogBatch)
	}
}
