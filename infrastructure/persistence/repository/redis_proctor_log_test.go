package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRedisRepo(t *testing.T) (repository.ProctorLogRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisProctorLogRepository(client, testTracer, logger.NewNopLogger()), mr
}

func TestRedisProctorLogRepository_Ordering(t *testing.T) {
	repo, _ := createTestRedisRepo(t)
	ctx := context.Background()

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	late := newTestLog("s1", t0.Add(10*time.Second), nil)
	second := newTestLog("s1", t0, seq(2))
	first := newTestLog("s1", t0, seq(1))

	require.NoError(t, repo.Append(ctx, late))
	require.NoError(t, repo.AppendBatch(ctx, []*model.ProctorLog{second, first}))

	got, err := repo.ListBySubmission(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Equal(t, late.ID, got[2].ID)
	assert.Equal(t, `{"count":1}`, got[0].Payload)
}

func TestRedisProctorLogRepository_CountDeleteAndIndex(t *testing.T) {
	repo, _ := createTestRedisRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Append(ctx, newTestLog("s1", now, nil)))
	require.NoError(t, repo.Append(ctx, newTestLog("s1", now, nil)))
	require.NoError(t, repo.Append(ctx, newTestLog("s2", now, nil)))

	count, err := repo.CountBySubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ids, err := repo.ListSubmissionIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)

	deleted, err := repo.DeleteBySubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	ids, err = repo.ListSubmissionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids)

	empty, err := repo.ListBySubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisProctorLogRepository_UnavailableIsStorageError(t *testing.T) {
	repo, mr := createTestRedisRepo(t)
	mr.Close()

	err := repo.Append(context.Background(), newTestLog("s1", time.Now(), nil))
	assert.True(t, repository.IsStorageError(err))
}
