package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/crams-api/pkg/errors"
	"github.com/noah-isme/crams-api/pkg/jobs"
)

// JobInvalidateCache is the job type for a deferred pattern deletion.
const JobInvalidateCache = "cache.invalidate"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type retryQueue interface {
	Enqueue(job jobs.Job) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	retries    retryQueue
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// UseRetryQueue makes failed invalidations retry in the background instead of
// waiting for the entry TTL.
func (s *CacheService) UseRetryQueue(q retryQueue) {
	if s != nil {
		s.retries = q
	}
}

// Invalidate removes cached values matching each pattern. It keeps going after a failure.
func (s *CacheService) Invalidate(ctx context.Context, patterns ...string) error {
	if !s.Enabled() {
		return nil
	}
	var firstErr error
	for _, pattern := range patterns {
		if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
			s.scheduleRetry(pattern)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RetryInvalidation is the retry queue handler.
func (s *CacheService) RetryInvalidation(ctx context.Context, job jobs.Job) error {
	if !s.Enabled() || job.Type != JobInvalidateCache {
		return nil
	}
	return s.repo.DeleteByPattern(ctx, job.Key)
}

func (s *CacheService) scheduleRetry(pattern string) {
	if s.retries == nil {
		return
	}
	if err := s.retries.Enqueue(jobs.Job{Type: JobInvalidateCache, Key: pattern}); err != nil {
		s.logger.Error("cache invalidation dropped", zap.String("pattern", pattern), zap.Error(err))
	}
}
