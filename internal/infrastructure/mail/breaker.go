package mail

import (
	"context"
	"time"

	usecase "backoffice/boilerplate/internal/usecase/auth"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig controls when the circuit opens.
type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// BreakerMailer stops calling next after consecutive failures until Timeout elapses.
type BreakerMailer struct {
	next usecase.Mailer
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker.
func WithBreaker(next usecase.Mailer, cfg BreakerConfig, logger *zap.Logger) *BreakerMailer {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &BreakerMailer{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

var _ usecase.Mailer = (*BreakerMailer)(nil)

// Send forwards to the wrapped mailer unless the circuit is open.
func (m *BreakerMailer) Send(ctx context.Context, to, subject, html string) error {
	_, err := m.cb.Execute(func() (interface{}, error) {
		return nil, m.next.Send(ctx, to, subject, html)
	})
	return err
}
