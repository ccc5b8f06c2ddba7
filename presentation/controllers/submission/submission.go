package submission

import (
	"errors"
	"net/http"

	"github.com/devscore/integrity/application/usecases/submission"
	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/events"
	"github.com/devscore/integrity/presentation/middlewares"
	"github.com/gin-gonic/gin"
)

type SubmissionController interface {
	Register(ctx *gin.Context)
	Finalize(ctx *gin.Context)
	UpdateEvaluation(ctx *gin.Context)
}

type submissionController struct {
	usecase submission.SubmissionUseCase
}

func NewSubmissionController(usecase submission.SubmissionUseCase) SubmissionController {
	return &submissionController{
		usecase: usecase,
	}
}

func (c *submissionController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: middlewares.TranslateValidationError(err),
		})
		return
	}

	created, err := c.usecase.Register(ctx.Request.Context(), req.ID, req.AssessmentID, req.CandidateID)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrAlreadyExists):
			ctx.JSON(http.StatusConflict, ErrorResponse{
				Error:   "already_exists",
				Message: err.Error(),
			})
		case errors.Is(err, submission.ErrMissingAssessment):
			ctx.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
		default:
			ctx.Error(err)
			ctx.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "creation_failed",
				Message: "failed to register submission",
			})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toSubmissionResponse(created))
}

func (c *submissionController) Finalize(ctx *gin.Context) {
	submissionID := ctx.Param("id")

	var req FinalizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: middlewares.TranslateValidationError(err),
		})
		return
	}

	answers := make([]model.CodeAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, model.CodeAnswer{
			QuestionID: a.QuestionID,
			Position:   a.Position,
			Code:       a.Code,
		})
	}

	result, err := c.usecase.Finalize(ctx.Request.Context(), submissionID, answers)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			ctx.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "submission not found",
			})
		case errors.Is(err, events.ErrQueueFull), errors.Is(err, events.ErrBusClosed):
			ctx.Header("Retry-After", "5")
			ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "busy",
				Message: "plagiarism check queue is unavailable, retry later",
			})
		default:
			ctx.Error(err)
			ctx.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "finalize_failed",
				Message: "failed to finalize submission",
			})
		}
		return
	}

	message := "Plagiarism check scheduled"
	if !result.Fingerprinted {
		message = "No code to compare"
	}
	ctx.JSON(http.StatusAccepted, FinalizeResponse{
		Message:       message,
		EventID:       result.EventID,
		Fingerprinted: result.Fingerprinted,
	})
}

func (c *submissionController) UpdateEvaluation(ctx *gin.Context) {
	submissionID := ctx.Param("id")

	var req EvaluationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: middlewares.TranslateValidationError(err),
		})
		return
	}

	updated, err := c.usecase.UpdateEvaluation(ctx.Request.Context(), submissionID, *req.IntegrityScore, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			ctx.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "submission not found",
			})
		case errors.Is(err, submission.ErrInvalidScore):
			ctx.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
		default:
			ctx.Error(err)
			ctx.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "update_failed",
				Message: "failed to store evaluation",
			})
		}
		return
	}

	ctx.JSON(http.StatusOK, toSubmissionResponse(updated))
}

func toSubmissionResponse(s *model.Submission) SubmissionResponse {
	flags := []string(s.IntegrityFlags)
	if flags == nil {
		flags = []string{}
	}
	return SubmissionResponse{
		ID:                s.ID,
		AssessmentID:      s.AssessmentID,
		CandidateID:       s.CandidateID,
		Score:             s.Score,
		IntegrityScore:    s.IntegrityScore,
		IntegrityFlags:    flags,
		MaxSimilarity:     s.MaxSimilarity,
		MostSimilarPeerID: s.MostSimilarPeerID,
		Status:            s.Status,
		SubmittedAt:       s.SubmittedAt,
	}
}
