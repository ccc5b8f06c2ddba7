package routes

import (
	"github.com/devscore/integrity/presentation/controllers/integrity"
	"github.com/gin-gonic/gin"
)

func IntegrityRoutes(router *gin.RouterGroup, controller integrity.IntegrityController) {
	router.GET("/integrity/:submissionId", controller.GetReport)
	router.GET("/assessments/:id/leaderboard", controller.GetLeaderboard)
}
