package cache

import (
	"context"
	"time"

	"github.com/devscore/integrity/domain/repository"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SubmissionLookup caches the identity lookups made on every telemetry write.
// Only positive answers are cached: an unknown submission may be created at
// any moment and must become visible on the next request. A cached id can
// outlive a deleted submission by at most the TTL; callers whose write then
// fails call Forget and ask again.
type SubmissionLookup struct {
	repository.SubmissionRepository

	exists      *expirable.LRU[string, struct{}]
	assessments *expirable.LRU[string, string]
}

func NewSubmissionLookup(repo repository.SubmissionRepository, size int, ttl time.Duration) *SubmissionLookup {
	if size <= 0 {
		size = 1024
	}
	return &SubmissionLookup{
		SubmissionRepository: repo,
		exists:               expirable.NewLRU[string, struct{}](size, nil, ttl),
		assessments:          expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *SubmissionLookup) Exists(ctx context.Context, id string) (bool, error) {
	if _, ok := c.exists.Get(id); ok {
		return true, nil
	}

	ok, err := c.SubmissionRepository.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		c.exists.Add(id, struct{}{})
	}
	return ok, nil
}

// GetAssessmentID is cached because a submission never changes assessment.
func (c *SubmissionLookup) GetAssessmentID(ctx context.Context, id string) (string, error) {
	if assessmentID, ok := c.assessments.Get(id); ok {
		return assessmentID, nil
	}

	assessmentID, err := c.SubmissionRepository.GetAssessmentID(ctx, id)
	if err != nil {
		return "", err
	}
	c.assessments.Add(id, assessmentID)
	c.exists.Add(id, struct{}{})
	return assessmentID, nil
}

// Forget drops a submission from the cache.
func (c *SubmissionLookup) Forget(id string) {
	c.exists.Remove(id)
	c.assessments.Remove(id)
}

func (c *SubmissionLookup) Len() int {
	return c.exists.Len()
}
