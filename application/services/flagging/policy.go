package flagging

import (
	"fmt"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/config"
)

const (
	PlagiarismFlagPrefix = "PLAGIARISM_SUSPECTED"

	SeverityCritical = "critical"
	SeverityHigh     = "high"

	criticalSimilarity = 0.95
)

// Policy turns raw signals into leaderboard status and integrity flags.
type Policy struct {
	FlagLogThreshold    int
	PlagiarismThreshold float64
	PlagiarismPenalty   float64
}

func NewPolicy(cfg config.ProctoringConfig) Policy {
	return Policy{
		FlagLogThreshold:    cfg.FlagLogThreshold,
		PlagiarismThreshold: cfg.PlagiarismThreshold,
		PlagiarismPenalty:   cfg.PlagiarismPenalty,
	}
}

// Status flags a submission once its log count exceeds the threshold.
func (p Policy) Status(logCount int64) model.LeaderboardStatus {
	if logCount > int64(p.FlagLogThreshold) {
		return model.StatusFlagged
	}
	return model.StatusCompleted
}

func (p Policy) IsPlagiarismSuspect(similarity float64) bool {
	return similarity > p.PlagiarismThreshold
}

func Severity(similarity float64) string {
	if similarity > criticalSimilarity {
		return SeverityCritical
	}
	return SeverityHigh
}

func PlagiarismFlag(similarity float64, peerID string) string {
	return fmt.Sprintf("%s: %.1f%% code similarity with submission %s (severity: %s)",
		PlagiarismFlagPrefix, similarity*100, peerID, Severity(similarity))
}

// PlagiarismPenaltyUpdate is the flag and penalty for a suspect pair, keyed on
// the flag prefix so each submission is penalised at most once.
func (p Policy) PlagiarismPenaltyUpdate(similarity float64, peerID string) repository.PenaltyUpdate {
	return repository.PenaltyUpdate{
		Flag:       PlagiarismFlag(similarity, peerID),
		FlagPrefix: PlagiarismFlagPrefix,
		Penalty:    p.PlagiarismPenalty,
	}
}
