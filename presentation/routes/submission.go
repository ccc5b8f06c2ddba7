package routes

import (
	"github.com/devscore/integrity/presentation/controllers/submission"
	"github.com/gin-gonic/gin"
)

func SubmissionRoutes(router *gin.RouterGroup, controller submission.SubmissionController) {
	submissions := router.Group("/submissions")
	{
		submissions.POST("", controller.Register)
		submissions.POST("/:id/finalize", controller.Finalize)
		submissions.PUT("/:id/evaluation", controller.UpdateEvaluation)
	}
}
