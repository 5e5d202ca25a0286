package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/notify"
	"github.com/rustyeddy/equitrader/portfolio"
)

// Order is one instruction submitted to the broker. Tag is the
// idempotency key; resubmitting an order with a known tag must not create
// a second execution.
type Order struct {
	Tag      string
	Symbol   market.Symbol
	Side     portfolio.Side
	Quantity int64
	Price    decimal.Decimal
	Reason   string
}

// Gateway submits orders to a broker.
type Gateway interface {
	Execute(ctx context.Context, o Order) error
}

// ErrEscalated marks an order that failed every retry and was handed to
// the operator. Trading halts; the pending intent stays persisted for
// reconciliation.
var ErrEscalated = errors.New("live: order escalated after retries")

const (
	gatewayAttempts = 3
	gatewayBackoff  = 2 * time.Second
)

// RetryGateway wraps a Gateway with bounded retries: three attempts with
// exponential backoff, then escalation through the notifier.
type RetryGateway struct {
	inner    Gateway
	notifier notify.Notifier
	backoff  time.Duration
	log      zerolog.Logger
}

func NewRetryGateway(inner Gateway, notifier notify.Notifier, log zerolog.Logger) *RetryGateway {
	return &RetryGateway{
		inner:    inner,
		notifier: notifier,
		backoff:  gatewayBackoff,
		log:      log.With().Str("component", "gateway").Logger(),
	}
}

func (g *RetryGateway) Execute(ctx context.Context, o Order) error {
	var lastErr error
	backoff := g.backoff
	for attempt := 1; attempt <= gatewayAttempts; attempt++ {
		lastErr = g.inner.Execute(ctx, o)
		if lastErr == nil {
			return nil
		}
		g.log.Warn().
			Err(lastErr).
			Str("tag", o.Tag).
			Int("attempt", attempt).
			Msg("order submission failed")
		if attempt == gatewayAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if err := g.notifier.Sendf("order %s failed after %d attempts: %v",
		o.Tag, gatewayAttempts, lastErr); err != nil {
		g.log.Error().Err(err).Msg("escalation notification failed")
	}
	return fmt.Errorf("%w: %s: %v", ErrEscalated, o.Tag, lastErr)
}

// PaperGateway accepts every order without touching a broker; used for
// dry runs against the live feed.
type PaperGateway struct {
	log zerolog.Logger
}

func NewPaperGateway(log zerolog.Logger) *PaperGateway {
	return &PaperGateway{log: log.With().Str("component", "paper").Logger()}
}

func (g *PaperGateway) Execute(_ context.Context, o Order) error {
	g.log.Info().
		Str("tag", o.Tag).
		Str("side", string(o.Side)).
		Int64("qty", o.Quantity).
		Str("price", o.Price.String()).
		Msg("paper fill")
	return nil
}
