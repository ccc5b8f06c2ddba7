package submission

import (
	"time"

	"github.com/devscore/integrity/domain/model"
)

type RegisterRequest struct {
	ID           string `json:"id" binding:"max=64"`
	AssessmentID string `json:"assessmentId" binding:"required,max=64"`
	CandidateID  string `json:"candidateId" binding:"max=64"`
}

type AnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Position   int    `json:"position"`
	Code       string `json:"code"`
}

type FinalizeRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"dive"`
}

type FinalizeResponse struct {
	Message       string `json:"message"`
	EventID       string `json:"eventId,omitempty"`
	Fingerprinted bool   `json:"fingerprinted"`
}

type EvaluationRequest struct {
	IntegrityScore *float64 `json:"integrityScore" binding:"required,gte=0,lte=100"`
	Score          *int     `json:"score" binding:"omitempty,gte=0"`
}

type SubmissionResponse struct {
	ID                string                 `json:"id"`
	AssessmentID      string                 `json:"assessmentId"`
	CandidateID       string                 `json:"candidateId"`
	Score             int                    `json:"score"`
	IntegrityScore    float64                `json:"integrityScore"`
	IntegrityFlags    []string               `json:"integrityFlags"`
	MaxSimilarity     float64                `json:"maxSimilarity"`
	MostSimilarPeerID string                 `json:"mostSimilarPeerId,omitempty"`
	Status            model.SubmissionStatus `json:"status"`
	SubmittedAt       time.Time              `json:"submittedAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
