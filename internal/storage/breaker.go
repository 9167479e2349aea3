package storage

import (
	"context"
	"errors"
	"time"

	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the breaker is open and calls are rejected
// without reaching the backend.
var ErrUnavailable = errors.New("object storage temporarily unavailable")

type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32

	// StateGauge, when set, tracks the breaker state (0=closed, 1=half-open, 2=open).
	StateGauge prometheus.Gauge
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerStorage guards a Storage with a circuit breaker so a failing backend
// fails fast instead of holding every upload for the full timeout.
type BreakerStorage struct {
	next    Storage
	breaker *gobreaker.CircuitBreaker[*UploadResult]
}

func WithCircuitBreaker(next Storage, cfg BreakerConfig) *BreakerStorage {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// A missing object or a cancelled caller says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrObjectNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithComponent("storage").WithFields(logger.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("storage circuit breaker state change")
			if cfg.StateGauge != nil {
				cfg.StateGauge.Set(stateValue(to))
			}
		},
	}

	return &BreakerStorage{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*UploadResult](settings),
	}
}

func (s *BreakerStorage) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	result, err := s.breaker.Execute(func() (*UploadResult, error) {
		return s.next.Upload(ctx, input)
	})
	return result, translateBreakerError(err)
}

func (s *BreakerStorage) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (*UploadResult, error) {
		return nil, s.next.Delete(ctx, key)
	})
	return translateBreakerError(err)
}

func (s *BreakerStorage) KeyFromURL(rawURL string) (string, error) {
	return s.next.KeyFromURL(rawURL)
}

func (s *BreakerStorage) State() gobreaker.State {
	return s.breaker.State()
}

func translateBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
