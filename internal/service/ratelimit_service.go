package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/internal/repository"
	"github.com/noah-isme/recruit-booking-api/pkg/config"
)

type attemptStore interface {
	Record(ctx context.Context, attempt *models.FailedAttempt) error
	CountInWindow(ctx context.Context, email, ip, action string, since time.Time) (*repository.WindowCount, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type throttleMetrics interface {
	ObserveRateLimit(action string, allowed bool)
	ObserveThrottleDegraded()
}

// RateLimitService throttles authentication attempts with a sliding-window
// count over the failed-attempt log. Attempts are keyed by the union of
// email and IP so rotating only one axis cannot reset the counter.
//
// The throttle is a best-effort defense: if the count query itself fails it
// fails open rather than locking every user out on a storage fault. Degraded
// decisions are logged and counted.
type RateLimitService struct {
	store   attemptStore
	metrics throttleMetrics
	logger  *zap.Logger
	cfg     config.RateLimitConfig
	now     func() time.Time
}

// NewRateLimitService constructs RateLimitService.
func NewRateLimitService(store attemptStore, metrics throttleMetrics, logger *zap.Logger, cfg config.RateLimitConfig) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &RateLimitService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Check decides whether another attempt may proceed. It never records
// anything, so it doubles as the pre-flight check-only mode.
func (s *RateLimitService) Check(ctx context.Context, email, ip, action string) models.RateLimitDecision {
	now := s.now()
	wc, err := s.store.CountInWindow(ctx, email, ip, action, now.Add(-s.cfg.Window))
	if err != nil {
		// Fail open: availability over strictness on infrastructure faults.
		s.logger.Warn("rate limit check degraded, allowing attempt",
			zap.String("action", action),
			zap.String("ip", ip),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveThrottleDegraded()
		}
		return models.RateLimitDecision{Allowed: true, Remaining: s.cfg.MaxAttempts}
	}

	decision := models.RateLimitDecision{
		Allowed:   wc.Count < s.cfg.MaxAttempts,
		Remaining: s.cfg.MaxAttempts - wc.Count,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed && wc.Oldest.Valid {
		decision.WaitTime = wc.Oldest.Time.Add(s.cfg.Window).Sub(now)
		if decision.WaitTime < 0 {
			decision.WaitTime = 0
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveRateLimit(action, decision.Allowed)
	}
	return decision
}

// RecordFailure appends a failed attempt so the window advances. A nil email
// records an IP-only attempt (pre-auth abuse where no account is known).
func (s *RateLimitService) RecordFailure(ctx context.Context, email, ip, action string) {
	attempt := &models.FailedAttempt{IPAddress: ip, Action: action, CreatedAt: s.now()}
	if email != "" {
		attempt.Email = &email
	}
	if err := s.store.Record(ctx, attempt); err != nil {
		s.logger.Warn("failed to record attempt",
			zap.String("action", action),
			zap.String("ip", ip),
			zap.Error(err))
	}
}

// StartJanitor purges expired attempts on an interval until the context is
// cancelled. Expired rows cannot change any decision, so this is pure
// bookkeeping.
func (s *RateLimitService) StartJanitor(ctx context.Context) {
	interval := s.cfg.PurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}

	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cutoff := s.now().Add(-s.cfg.Window)
				deleted, err := s.store.PurgeBefore(ctx, cutoff)
				if err != nil {
					s.logger.Warn("failed attempt purge failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					s.logger.Debug("purged expired failed attempts", zap.Int64("deleted", deleted))
				}
			}
		}
	}()
}
