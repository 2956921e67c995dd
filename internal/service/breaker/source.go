// Package breaker guards a BarSource with a circuit breaker.
package breaker

import (
	"context"
	"errors"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	applogger "RegimeAPI/pkg/logger"

	cb "github.com/sony/gobreaker"
)

type Settings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Source trips after consecutive upstream failures and fails fast while open.
// Only ProviderUnavailable and unclassified errors count as failures.
type Source struct {
	next domrepo.BarSource
	cb   *cb.CircuitBreaker
}

func New(next domrepo.BarSource, s Settings, l *applogger.Logger) *Source {
	if l == nil {
		l = applogger.Nop()
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	st := cb.Settings{
		Name:        next.Name(),
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A timed-out call counts against the provider; a caller walking away does not.
			if errors.Is(err, context.Canceled) {
				return true
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			kind := models.KindOf(err)
			return kind != models.KindUpstream && kind != models.KindInternal
		},
		OnStateChange: func(name string, from, to cb.State) {
			l.Warn("bar source breaker state change",
				applogger.String("source", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return &Source{next: next, cb: cb.NewCircuitBreaker(st)}
}

func (s *Source) Name() string { return s.next.Name() }

// State exposes the breaker state for readiness checks.
func (s *Source) State() string { return s.cb.State().String() }

// Ping fails while the breaker is open so readiness probes report a tripped provider.
func (s *Source) Ping(context.Context) error {
	if s.cb.State() == cb.StateOpen {
		return models.Errorf(models.ErrProviderUnavailable, "%s circuit open", s.next.Name())
	}
	return nil
}

func (s *Source) GetBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.GetBars(ctx, symbol, from, to, g)
	})
	if err != nil {
		if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
			return nil, models.Wrap(models.ErrProviderUnavailable, err, s.next.Name()+" circuit open")
		}
		return nil, err
	}
	bars, _ := out.([]models.Bar)
	return bars, nil
}

var _ domrepo.BarSource = (*Source)(nil)
