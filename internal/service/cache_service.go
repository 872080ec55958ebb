package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

// CacheRepository abstracts persistence for cached lookups.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
}

// CacheService remembers which faculty holds a student email. Failures are
// logged and reported as misses; they never fail the caller.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// FacultyIDForEmail returns the cached faculty ID for email, if any.
func (s *CacheService) FacultyIDForEmail(ctx context.Context, email string) (string, bool) {
	if !s.Enabled() {
		return "", false
	}
	id, err := s.repo.Get(ctx, email)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("email", email), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
		return "", false
	}
	s.metrics.RecordCacheLookup(true)
	return id, true
}

// Remember stores the faculty ID for email.
func (s *CacheService) Remember(ctx context.Context, email, facultyID string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Set(ctx, email, facultyID, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("email", email), zap.Error(err))
	}
}

// Forget drops the cached entry for email.
func (s *CacheService) Forget(ctx context.Context, email string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Delete(ctx, email); err != nil {
		s.logger.Warn("cache delete failed", zap.String("email", email), zap.Error(err))
	}
}

// Reset drops every cached lookup.
func (s *CacheService) Reset(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteAll(ctx); err != nil {
		s.logger.Warn("cache reset failed", zap.Error(err))
	}
}
