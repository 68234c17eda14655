package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/pkg/jobs"
)

type flakyCacheRepo struct {
	*memoryCacheRepo
	failures int
}

func (f *flakyCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("redis: connection reset")
	}
	return f.memoryCacheRepo.DeleteByPattern(ctx, pattern)
}

type retryQueueStub struct {
	jobs []jobs.Job
}

func (q *retryQueueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", &struct{}{})
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "k"))

	svc := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, false)
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))
}

func TestCacheServiceGetSetInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	require.NoError(t, svc.Set(context.Background(), "crams:courses:id:c1", map[string]int{"seats": 3}, 0))
	var out map[string]int
	hit, err := svc.Get(context.Background(), "crams:courses:id:c1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["seats"])

	require.NoError(t, svc.Invalidate(context.Background(), "crams:courses:*"))
	hit, err = svc.Get(context.Background(), "crams:courses:id:c1", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceQueuesFailedInvalidation(t *testing.T) {
	repo := &flakyCacheRepo{memoryCacheRepo: newMemoryCacheRepo(), failures: 1}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	queue := &retryQueueStub{}
	svc.UseRetryQueue(queue)
	require.NoError(t, svc.Set(context.Background(), "crams:admin:dashboard", 1, 0))

	err := svc.Invalidate(context.Background(), "crams:admin:dashboard*")
	assert.Error(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobInvalidateCache, queue.jobs[0].Type)
	assert.Equal(t, "crams:admin:dashboard*", queue.jobs[0].Key)
	assert.Len(t, repo.items, 1)

	require.NoError(t, svc.RetryInvalidation(context.Background(), queue.jobs[0]))
	assert.Empty(t, repo.items)
}
