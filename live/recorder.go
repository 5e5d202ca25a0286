package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/portfolio"
)

// Recorder routes the core's fills through the broker gateway with a
// write-ahead intent: the intent is persisted before submission and
// cleared after journaling, so every crash window is recoverable.
//
// Fills whose tag is already journaled are skipped, which makes re-running
// a cycle after a restart safe.
type Recorder struct {
	jr        *journal.SQLite
	gw        Gateway
	statePath string
	log       zerolog.Logger

	mu    sync.Mutex
	state State
}

func NewRecorder(jr *journal.SQLite, gw Gateway, statePath string, st State, log zerolog.Logger) *Recorder {
	return &Recorder{
		jr:        jr,
		gw:        gw,
		statePath: statePath,
		state:     st,
		log:       log.With().Str("component", "recorder").Logger(),
	}
}

func (r *Recorder) RecordFill(ctx context.Context, fill portfolio.Fill, tag string) error {
	done, err := r.jr.HasTag(ctx, tag)
	if err != nil {
		return err
	}
	if done {
		r.log.Info().Str("tag", tag).Msg("order already executed, skipping")
		return nil
	}

	order := Order{
		Tag:      tag,
		Symbol:   fill.Symbol,
		Side:     fill.Side,
		Quantity: fill.Quantity,
		Price:    fill.Price,
		Reason:   string(fill.Reason),
	}
	if order.Reason == "" {
		order.Reason = "open"
		if fill.Layer > 0 {
			order.Reason = fmt.Sprintf("add_%d", fill.Layer)
		}
	}

	if err := r.pushIntent(order, fill.Date); err != nil {
		return err
	}
	if err := r.gw.Execute(ctx, order); err != nil {
		// The broker rejected the order outright; the core rolls the
		// portfolio back, so the intent must not be resubmitted on
		// restart. A crash mid-submit still leaves the intent behind.
		if perr := r.popIntent(order.Tag); perr != nil {
			r.log.Error().Err(perr).Str("tag", order.Tag).Msg("intent cleanup failed")
		}
		return err
	}
	if err := r.jr.RecordFill(ctx, fill, tag); err != nil {
		return err
	}
	return r.popIntent(tag)
}

func (r *Recorder) RecordEquity(ctx context.Context, date time.Time, equity, cash decimal.Decimal) error {
	return r.jr.RecordEquity(ctx, date, equity, cash)
}

func (r *Recorder) pushIntent(o Order, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.TradingDate = date
	r.state.Intents = append(r.state.Intents, Intent{
		Tag:       o.Tag,
		Symbol:    string(o.Symbol),
		Side:      string(o.Side),
		Quantity:  o.Quantity,
		Price:     o.Price.String(),
		Reason:    o.Reason,
		CreatedAt: time.Now().UTC(),
	})
	return SaveState(r.statePath, r.state)
}

func (r *Recorder) popIntent(tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.state.Intents[:0]
	for _, in := range r.state.Intents {
		if in.Tag != tag {
			kept = append(kept, in)
		}
	}
	r.state.Intents = kept
	return SaveState(r.statePath, r.state)
}
