// Package recorder persists stream and REST data to parquet files through an
// in-memory DuckDB database.
package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/internal/types"
)

// Quote is the top of book recorded for one price event.
type Quote struct {
	Time        time.Time
	Instrument  string
	Bid         decimal.Decimal
	Ask         decimal.Decimal
	CloseoutBid decimal.Decimal
	CloseoutAsk decimal.Decimal
	Tradeable   bool
}

// Mid is the midpoint of bid and ask.
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}

// QuoteFromPrice takes the best bid and ask of p. It reports false when p has no
// instrument or an empty side of the book.
func QuoteFromPrice(p types.ClientPrice) (Quote, bool) {
	bid, ask, ok := p.TopOfBook()
	if !ok || p.Instrument.IsNone() {
		return Quote{}, false
	}

	q := Quote{
		Time:        p.Timestamp,
		Instrument:  p.Instrument.Unwrap(),
		Bid:         bid,
		Ask:         ask,
		CloseoutBid: p.CloseoutBid,
		CloseoutAsk: p.CloseoutAsk,
	}

	if p.Tradeable.IsSome() {
		q.Tradeable = p.Tradeable.Unwrap()
	}

	return q, true
}

// QuoteWriter persists quotes as they arrive.
type QuoteWriter interface {
	// Initialize opens the database and loads previously recorded quotes.
	Initialize() error
	// Write upserts one quote.
	Write(q Quote) error
	// Flush exports everything recorded so far.
	Flush() error
	// Count returns the number of recorded quotes.
	Count() (int, error)
	// OutputPath returns the parquet file path.
	OutputPath() string
	// Close flushes and releases the database.
	Close() error
}

// CandleWriter persists a batch of candles.
type CandleWriter interface {
	Initialize() error
	Write(instrument string, c types.Candlestick) error
	// Finalize commits the batch and exports it, returning the output path.
	Finalize() (string, error)
	OutputPath() string
	Close() error
}
