package live

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
)

// wireTick is the feed's json frame.
type wireTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Time   int64   `json:"time"` // unix seconds
}

// Feed subscribes to a websocket quote stream and pushes ticks into the
// queue. It reconnects forever with capped backoff; the decision loop
// never sees connection churn, only a quiet queue.
type Feed struct {
	url   string
	queue *TickQueue
	log   zerolog.Logger
}

func NewFeed(url string, queue *TickQueue, log zerolog.Logger) *Feed {
	return &Feed{url: url, queue: queue, log: log.With().Str("component", "feed").Logger()}
}

const (
	feedBackoffMin = time.Second
	feedBackoffMax = time.Minute
)

// Run blocks until the context is canceled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := feedBackoffMin
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("feed disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > feedBackoffMax {
			backoff = feedBackoffMax
		}
	}
}

func (f *Feed) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.log.Info().Str("url", f.url).Msg("feed connected")

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var wt wireTick
		if err := json.Unmarshal(raw, &wt); err != nil {
			f.log.Debug().Err(err).Msg("dropping malformed tick")
			continue
		}
		if wt.Symbol == "" || wt.Price <= 0 {
			continue
		}
		if f.queue.Push(Tick{
			Symbol: market.Symbol(wt.Symbol),
			Price:  decimal.NewFromFloat(wt.Price),
			Time:   time.Unix(wt.Time, 0).UTC(),
		}) {
			f.log.Debug().Int64("dropped", f.queue.Dropped()).Msg("tick queue full")
		}
	}
}
