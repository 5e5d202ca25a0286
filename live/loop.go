package live

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/notify"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/store"
)

// Trader owns a live session: one decision goroutine, a premarket cycle
// on the cron schedule, and periodic monitor passes that fold queued
// ticks into the portfolio and re-check exits.
type Trader struct {
	core     *engine.Core
	src      *Source
	st       *store.SQLite
	queue    *TickQueue
	sched    *Scheduler
	notifier notify.Notifier
	monitor  time.Duration
	spec     string
	log      zerolog.Logger

	now func() time.Time // injectable for tests
}

func NewTrader(core *engine.Core, src *Source, st *store.SQLite, queue *TickQueue,
	notifier notify.Notifier, premarketSpec string, monitorEvery time.Duration,
	log zerolog.Logger) *Trader {
	return &Trader{
		core:     core,
		src:      src,
		st:       st,
		queue:    queue,
		sched:    NewScheduler(log),
		notifier: notifier,
		monitor:  monitorEvery,
		spec:     premarketSpec,
		log:      log.With().Str("component", "live").Logger(),
		now:      time.Now,
	}
}

// Run blocks until the context is canceled or trading halts. Every cycle
// runs on this goroutine; the cron job and the feed only signal it.
func (t *Trader) Run(ctx context.Context) error {
	premarket := make(chan struct{}, 1)
	if err := t.sched.Schedule(t.spec, func() {
		select {
		case premarket <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}
	t.sched.Start()
	defer t.sched.Stop()

	ticker := time.NewTicker(t.monitor)
	defer ticker.Stop()

	t.log.Info().Str("premarket", t.spec).Dur("monitor", t.monitor).Msg("live session started")
	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return ctx.Err()
		case <-premarket:
			if _, err := t.cycle(ctx); err != nil {
				return t.halt(err)
			}
		case <-ticker.C:
			t.applyTicks()
			if _, err := t.cycle(ctx); err != nil {
				return t.halt(err)
			}
		}
	}
}

// RunOnce executes a single cycle immediately and returns its result;
// the premarket and monitor CLI commands use it.
func (t *Trader) RunOnce(ctx context.Context) (engine.CycleResult, error) {
	t.applyTicks()
	res, err := t.cycle(ctx)
	if err != nil {
		return res, t.halt(err)
	}
	t.shutdown()
	return res, nil
}

func (t *Trader) cycle(ctx context.Context) (engine.CycleResult, error) {
	res, err := t.core.RunCycle(ctx, t.now())
	if err != nil {
		return res, err
	}
	if len(res.Closed)+len(res.Opened)+len(res.Added) > 0 {
		t.notifier.Sendf("%s: %d closed, %d opened, %d added, equity %s",
			res.Date.Format("2006-01-02"), len(res.Closed), len(res.Opened),
			len(res.Added), res.Equity.StringFixed(2))
	}
	return res, t.st.SavePortfolio(ctx, t.core.Portfolio().Snapshot())
}

// applyTicks folds queued prices into the source, where risk checks and
// fills read them, and into held positions for marking.
func (t *Trader) applyTicks() {
	for _, tick := range t.queue.Drain() {
		t.src.SetPrice(tick.Symbol, tick.Price)
		err := t.core.Portfolio().MarkPrice(tick.Symbol, tick.Price)
		if err != nil && !errors.Is(err, portfolio.ErrNoPosition) {
			t.log.Warn().Err(err).Str("symbol", string(tick.Symbol)).Msg("mark failed")
		}
	}
}

// halt stops trading on a non-recoverable error, leaving persisted state
// in place for reconciliation.
func (t *Trader) halt(err error) error {
	switch {
	case errors.Is(err, ErrEscalated):
		t.notifier.Sendf("trading halted: %v", err)
	case errors.Is(err, ErrStateCorruption):
		t.notifier.Sendf("trading halted, manual reconciliation required: %v", err)
	default:
		t.notifier.Sendf("cycle failed: %v", err)
	}
	t.shutdown()
	return err
}

func (t *Trader) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.st.SavePortfolio(ctx, t.core.Portfolio().Snapshot()); err != nil {
		t.log.Error().Err(err).Msg("portfolio snapshot failed on shutdown")
	}
	t.log.Info().Msg("live session stopped")
}
