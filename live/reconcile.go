package live

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/portfolio"
)

// ErrStateCorruption means the persisted portfolio, the journal and the
// pending intents disagree in a way that cannot be resolved automatically.
// The session must halt and wait for an operator.
var ErrStateCorruption = errors.New("live: state corruption detected")

// Reconcile checks a restored session before trading resumes. Intents
// whose tag is already journaled completed before the crash and are
// dropped; the rest are genuinely pending and returned for resubmission.
//
// Two situations are corruption, not recovery:
//   - a journaled sell whose position still exists in the snapshot
//   - a journaled buy-open with no matching position
func Reconcile(ctx context.Context, snap portfolio.Snapshot, jr *journal.SQLite, intents []Intent) ([]Intent, error) {
	held := make(map[string]bool, len(snap.Positions))
	for _, p := range snap.Positions {
		held[string(p.Symbol)] = true
	}

	var pending []Intent
	for _, in := range intents {
		done, err := jr.HasTag(ctx, in.Tag)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", in.Tag, err)
		}
		if !done {
			pending = append(pending, in)
			continue
		}
		// The intent executed before the crash. The snapshot must agree
		// with its effect.
		switch portfolio.Side(in.Side) {
		case portfolio.Sell:
			if held[in.Symbol] {
				return nil, fmt.Errorf("%w: sell %s journaled but position still held",
					ErrStateCorruption, in.Tag)
			}
		case portfolio.Buy:
			if in.Reason == "open" && !held[in.Symbol] {
				return nil, fmt.Errorf("%w: buy %s journaled but position missing",
					ErrStateCorruption, in.Tag)
			}
		default:
			return nil, fmt.Errorf("%w: intent %s has unknown side %q",
				ErrStateCorruption, in.Tag, in.Side)
		}
	}
	return pending, nil
}

// Resume pushes genuinely pending intents back through the recorder, which
// re-applies the idempotency check, the gateway and the journal.
func Resume(ctx context.Context, pending []Intent, rec *Recorder) error {
	for _, in := range pending {
		fill, err := in.fill()
		if err != nil {
			return fmt.Errorf("resume %s: %w", in.Tag, err)
		}
		if err := rec.RecordFill(ctx, fill, in.Tag); err != nil {
			return fmt.Errorf("resume %s: %w", in.Tag, err)
		}
	}
	return nil
}

// fill reconstructs the execution an intent describes. Realized pnl for a
// resumed sell is not recoverable from the intent alone and is stored as
// zero; position-level reporting works from the equity curve instead.
func (in Intent) fill() (portfolio.Fill, error) {
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return portfolio.Fill{}, fmt.Errorf("bad price %q: %w", in.Price, err)
	}
	gross := price.Mul(decimal.NewFromInt(in.Quantity))
	f := portfolio.Fill{
		Symbol:     market.Symbol(in.Symbol),
		Side:       portfolio.Side(in.Side),
		Date:       market.Day(in.CreatedAt),
		Price:      price,
		Quantity:   in.Quantity,
		Gross:      gross,
		Commission: portfolio.Commission(gross),
		PnL:        decimal.Zero,
	}
	if f.Side == portfolio.Sell {
		f.StampTax = portfolio.StampTax(gross)
		f.Reason = portfolio.CloseReason(in.Reason)
	}
	return f, nil
}
