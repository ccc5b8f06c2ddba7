package proctor

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/devscore/integrity/application/usecases/proctor"
	"github.com/devscore/integrity/presentation/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	messageSaved   = "Log saved"
	messageSkipped = "Skipped - unknown submission"
	messageBatch   = "Batch processed"
)

type ProctorController interface {
	Log(ctx *gin.Context)
	LogBatch(ctx *gin.Context)
}

type proctorController struct {
	usecase proctor.ProctorUseCase
}

func NewProctorController(usecase proctor.ProctorUseCase) ProctorController {
	return &proctorController{
		usecase: usecase,
	}
}

func (c *proctorController) Log(ctx *gin.Context) {
	var req LogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: middlewares.TranslateValidationError(err),
		})
		return
	}

	outcome, err := c.usecase.LogSingle(ctx.Request.Context(), toEntry(req))
	if err != nil {
		if errors.Is(err, proctor.ErrInvalidEntry) {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "log_failed",
			Message: "failed to store proctor log",
		})
		return
	}

	message := messageSaved
	if outcome == proctor.OutcomeSkipped {
		message = messageSkipped
	}
	ctx.JSON(http.StatusOK, LogResponse{Message: message})
}

func (c *proctorController) LogBatch(ctx *gin.Context) {
	var raw []json.RawMessage
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "body must be a JSON array of log entries",
		})
		return
	}

	// Elements are decoded one by one so a single malformed entry is
	// skipped instead of rejecting the whole batch.
	entries := make([]proctor.LogEntry, 0, len(raw))
	for _, element := range raw {
		var req LogRequest
		if err := json.Unmarshal(element, &req); err != nil {
			entries = append(entries, proctor.LogEntry{DecodeErr: err})
			continue
		}
		entries = append(entries, toEntry(req))
	}

	result, err := c.usecase.LogBatch(ctx.Request.Context(), entries)
	resp := BatchResponse{
		Message:  messageBatch,
		Accepted: result.Accepted,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
	}

	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, resp)
	case errors.Is(err, proctor.ErrEmptyBatch):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, proctor.ErrBatchTooLarge):
		ctx.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "batch_too_large",
			Message: err.Error(),
		})
	case errors.Is(err, proctor.ErrNothingWritten):
		ctx.Error(err)
		resp.Message = err.Error()
		ctx.JSON(http.StatusServiceUnavailable, resp)
	default:
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "log_failed",
			Message: "failed to store proctor logs",
		})
	}
}

func toEntry(req LogRequest) proctor.LogEntry {
	return proctor.LogEntry{
		SubmissionID:   req.SubmissionID,
		LogType:        req.LogType,
		Data:           payloadText(req.Data),
		SequenceNumber: req.SequenceNumber,
		Timestamp:      req.Timestamp,
	}
}

// payloadText unquotes a JSON string and keeps any other JSON value verbatim.
func payloadText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
