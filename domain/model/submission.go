package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionRecording SubmissionStatus = "RECORDING"
	SubmissionFinalized SubmissionStatus = "FINALIZED"
)

const (
	MaxIntegrityScore = 100.0
	MinIntegrityScore = 0.0
)

// Submission is owned by the assessment CRUD layer. This service reads its
// identity and writes the fingerprint and integrity fields.
type Submission struct {
	ID           string `gorm:"type:VARCHAR(36);primaryKey" json:"id"`
	AssessmentID string `gorm:"type:VARCHAR(36);not null;index" json:"assessmentId"`
	CandidateID  string `gorm:"type:VARCHAR(64);not null;index" json:"candidateId"`
	Score        int    `gorm:"not null" json:"score"`

	// BaseIntegrityScore is the last value reported by the evaluation service.
	BaseIntegrityScore float64                     `gorm:"not null" json:"baseIntegrityScore"`
	IntegrityPenalty   float64                     `gorm:"not null" json:"integrityPenalty"`
	IntegrityScore     float64                     `gorm:"not null" json:"integrityScore"`
	IntegrityFlags     datatypes.JSONSlice[string] `json:"integrityFlags"`

	CodeFingerprint   datatypes.JSONSlice[int64] `json:"codeFingerprint"`
	MaxSimilarity     float64                    `gorm:"not null" json:"maxSimilarity"`
	MostSimilarPeerID string                     `gorm:"type:VARCHAR(36)" json:"mostSimilarPeerId,omitempty"`

	Status      SubmissionStatus `gorm:"type:VARCHAR(16);not null" json:"status"`
	SubmittedAt time.Time        `gorm:"not null;index" json:"submittedAt"`
	CreatedAt   time.Time        `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

func NewSubmission(id, assessmentID, candidateID string) *Submission {
	now := time.Now().UTC()
	return &Submission{
		ID:                 id,
		AssessmentID:       assessmentID,
		CandidateID:        candidateID,
		BaseIntegrityScore: MaxIntegrityScore,
		IntegrityScore:     MaxIntegrityScore,
		IntegrityFlags:     datatypes.JSONSlice[string]{},
		CodeFingerprint:    datatypes.JSONSlice[int64]{},
		Status:             SubmissionRecording,
		SubmittedAt:        now,
	}
}

func (s *Submission) HasFlagPrefix(prefix string) bool {
	for _, f := range s.IntegrityFlags {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

// EffectiveIntegrityScore derives the stored score from the base score and the
// accumulated penalty. Penalties only ever lower the base.
func EffectiveIntegrityScore(base, penalty float64) float64 {
	score := base - penalty
	if score > MaxIntegrityScore {
		score = MaxIntegrityScore
	}
	if score < MinIntegrityScore {
		score = MinIntegrityScore
	}
	return score
}

// CodeAnswer is one coding question's answer as submitted by the candidate.
type CodeAnswer struct {
	QuestionID string `json:"questionId"`
	Position   int    `json:"position"`
	Code       string `json:"code"`
}
