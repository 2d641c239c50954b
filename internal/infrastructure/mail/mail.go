// Package mail delivers outbound email without blocking request handlers.
package mail

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"github.com/videotube-api/internal/pkg/metrics"
	"go.uber.org/zap"
)

// Sender delivers one message synchronously.
type Sender interface {
	SendEmail(to, subject, body string) error
}

// Dispatcher sends mail in the background through a circuit breaker.
// Failures are logged, never retried or returned to the caller.
type Dispatcher struct {
	sender  Sender
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
	timeout time.Duration
}

func NewDispatcher(sender Sender, log *zap.Logger) *Dispatcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mail",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("component", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.MailBreakerState.Set(stateToFloat(to))
		},
	})
	return &Dispatcher{sender: sender, breaker: cb, log: log, timeout: 30 * time.Second}
}

// Send queues a message and returns immediately.
func (d *Dispatcher) Send(to, subject, body string) {
	go func() {
		if err := d.deliver(to, subject, body); err != nil {
			d.log.Error("email delivery failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}()
}

func (d *Dispatcher) deliver(to, subject, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	_, err := d.breaker.Execute(func() (interface{}, error) {
		done := make(chan error, 1)
		go func() { done <- d.sender.SendEmail(to, subject, body) }()
		select {
		case err := <-done:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	return err
}

func (d *Dispatcher) State() gobreaker.State {
	return d.breaker.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
