package integrity

import (
	"errors"
	"net/http"

	"github.com/devscore/integrity/application/usecases/integrity"
	"github.com/devscore/integrity/domain/repository"
	"github.com/gin-gonic/gin"
)

type IntegrityController interface {
	GetReport(ctx *gin.Context)
	GetLeaderboard(ctx *gin.Context)
}

type integrityController struct {
	usecase integrity.IntegrityUseCase
}

func NewIntegrityController(usecase integrity.IntegrityUseCase) IntegrityController {
	return &integrityController{
		usecase: usecase,
	}
}

func (c *integrityController) GetReport(ctx *gin.Context) {
	submissionID := ctx.Param("submissionId")
	if submissionID == "" {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "submission ID is required",
		})
		return
	}

	report, err := c.usecase.GetReport(ctx.Request.Context(), submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "submission not found",
			})
			return
		}
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "report_failed",
			Message: "failed to build integrity report",
		})
		return
	}

	ctx.JSON(http.StatusOK, report)
}

func (c *integrityController) GetLeaderboard(ctx *gin.Context) {
	assessmentID := ctx.Param("id")
	if assessmentID == "" {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "assessment ID is required",
		})
		return
	}

	entries, err := c.usecase.GetLeaderboard(ctx.Request.Context(), assessmentID)
	if err != nil {
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "leaderboard_failed",
			Message: "failed to build leaderboard",
		})
		return
	}

	ctx.JSON(http.StatusOK, entries)
}
