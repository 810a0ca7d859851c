package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// PriceType is the discriminant of messages on the pricing stream.
type PriceType string

const (
	PriceTypePrice     PriceType = "PRICE"
	PriceTypeHeartbeat PriceType = "HEARTBEAT"
)

// PriceBucket is one price level with its available liquidity.
// https://developer.oanda.com/rest-live-v20/pricing-common-df/#PriceBucket
type PriceBucket struct {
	Price     decimal.Decimal
	Liquidity int64
}

// ClientPrice is a quote snapshot for one instrument. Bids and Asks are ordered
// best first.
// https://developer.oanda.com/rest-live-v20/pricing-df/#ClientPrice
type ClientPrice struct {
	Type        PriceType
	Instrument  optional.Option[string]
	Timestamp   time.Time
	Tradeable   optional.Option[bool]
	Bids        []PriceBucket
	Asks        []PriceBucket
	CloseoutBid decimal.Decimal
	CloseoutAsk decimal.Decimal
}

// TopOfBook returns the best bid and ask. ok is false when either side is empty.
func (p ClientPrice) TopOfBook() (bid, ask decimal.Decimal, ok bool) {
	if len(p.Bids) == 0 || len(p.Asks) == 0 {
		return decimal.Zero, decimal.Zero, false
	}

	return p.Bids[0].Price, p.Asks[0].Price, true
}

// Spread is ask minus bid at the top of the book.
func (p ClientPrice) Spread() (decimal.Decimal, bool) {
	bid, ask, ok := p.TopOfBook()
	if !ok {
		return decimal.Zero, false
	}

	return ask.Sub(bid), true
}

// ParseClientPrice decodes one pricing stream message. A message without a type is
// treated as PRICE; any other type yields an ErrCodeUnknownType error.
func ParseClientPrice(raw []byte) (ClientPrice, error) {
	f, err := parseFields(raw)
	if err != nil {
		return ClientPrice{}, err
	}

	typ, err := f.strOr("type", string(PriceTypePrice))
	if err != nil {
		return ClientPrice{}, err
	}

	if PriceType(typ) != PriceTypePrice {
		return ClientPrice{}, errors.Newf(errors.ErrCodeUnknownType, "unknown price message type %q", typ)
	}

	return parseClientPrice(f)
}

func parseClientPrice(f fields) (ClientPrice, error) {
	instrument, err := f.optStr("instrument")
	if err != nil {
		return ClientPrice{}, err
	}

	// The stream sends "time"; prices embedded in fills send "timestamp".
	timeKey := "time"
	if !f.has(timeKey) {
		timeKey = "timestamp"
	}

	ts, err := f.time(timeKey)
	if err != nil {
		return ClientPrice{}, err
	}

	tradeable, err := f.optBool("tradeable")
	if err != nil {
		return ClientPrice{}, err
	}

	bids, err := parseEach(f, "bids", parsePriceBucket)
	if err != nil {
		return ClientPrice{}, err
	}

	asks, err := parseEach(f, "asks", parsePriceBucket)
	if err != nil {
		return ClientPrice{}, err
	}

	closeoutBid, err := f.dec("closeoutBid")
	if err != nil {
		return ClientPrice{}, err
	}

	closeoutAsk, err := f.dec("closeoutAsk")
	if err != nil {
		return ClientPrice{}, err
	}

	return ClientPrice{
		Type:        PriceTypePrice,
		Instrument:  instrument,
		Timestamp:   ts,
		Tradeable:   tradeable,
		Bids:        bids,
		Asks:        asks,
		CloseoutBid: closeoutBid,
		CloseoutAsk: closeoutAsk,
	}, nil
}

func parsePriceBucket(f fields) (PriceBucket, error) {
	price, err := f.dec("price")
	if err != nil {
		return PriceBucket{}, err
	}

	liquidity, err := f.integer("liquidity")
	if err != nil {
		return PriceBucket{}, err
	}

	return PriceBucket{Price: price, Liquidity: liquidity}, nil
}
