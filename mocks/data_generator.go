package mocks

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rxtech-lab/argo-oanda/internal/types"
)

// QuoteGenerator produces realistic pricing stream lines for tests and benchmarks.
type QuoteGenerator struct {
	rng *rand.Rand
}

// NewQuoteGenerator creates a new QuoteGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewQuoteGenerator(seed uint64) *QuoteGenerator {
	return &QuoteGenerator{
		rng: rand.New(rand.NewPCG(seed, seed)),
	}
}

// GeneratorConfig configures how quotes are generated.
type GeneratorConfig struct {
	// Instrument is the OANDA instrument name (e.g., "USD_JPY")
	Instrument string
	// StartTime is the time of the first quote
	StartTime time.Time
	// Interval is the duration between quotes
	Interval time.Duration
	// Count is the number of quotes to generate
	Count int
	// InitialMid is the starting mid price
	InitialMid float64
	// Volatility controls price movement per tick (0.0001 = 1bp)
	Volatility float64
	// HalfSpread is half the bid/ask spread
	HalfSpread float64
	// Precision is the number of decimal places quoted
	Precision int
	// Liquidity is the size available at the top of the book
	Liquidity int64
	// HeartbeatEvery inserts a heartbeat line after every n quotes; 0 disables
	HeartbeatEvery int
}

// DefaultConfig returns a USD_JPY-like configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Instrument:     "USD_JPY",
		StartTime:      time.Date(2025, 3, 24, 15, 34, 25, 0, time.UTC),
		Interval:       250 * time.Millisecond,
		Count:          1000,
		InitialMid:     150.695,
		Volatility:     0.0001,
		HalfSpread:     0.002,
		Precision:      3,
		Liquidity:      250000,
		HeartbeatEvery: 0,
	}
}

type wireBucket struct {
	Price     string `json:"price"`
	Liquidity int64  `json:"liquidity"`
}

type wirePrice struct {
	Type        string       `json:"type"`
	Time        string       `json:"time"`
	Instrument  string       `json:"instrument"`
	Tradeable   bool         `json:"tradeable"`
	Bids        []wireBucket `json:"bids"`
	Asks        []wireBucket `json:"asks"`
	CloseoutBid string       `json:"closeoutBid"`
	CloseoutAsk string       `json:"closeoutAsk"`
}

type wireHeartbeat struct {
	Type string `json:"type"`
	Time string `json:"time"`
}

// Generate returns newline-terminated pricing stream lines. The mid price follows
// a random walk driven by normally distributed shocks.
func (g *QuoteGenerator) Generate(config GeneratorConfig) []string {
	lines := make([]string, 0, config.Count)
	mid := config.InitialMid
	current := config.StartTime

	for i := 0; i < config.Count; i++ {
		// Box-Muller transform for a standard normal shock
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		mid *= 1 + config.Volatility*z
		if mid <= config.HalfSpread*2 {
			mid = config.HalfSpread * 4
		}

		bid := mid - config.HalfSpread
		ask := mid + config.HalfSpread

		lines = append(lines, mustLine(wirePrice{
			Type:        string(types.PriceTypePrice),
			Time:        current.Format(time.RFC3339Nano),
			Instrument:  config.Instrument,
			Tradeable:   true,
			Bids:        []wireBucket{{Price: format(bid, config.Precision), Liquidity: config.Liquidity}},
			Asks:        []wireBucket{{Price: format(ask, config.Precision), Liquidity: config.Liquidity}},
			CloseoutBid: format(bid-config.HalfSpread, config.Precision),
			CloseoutAsk: format(ask+config.HalfSpread, config.Precision),
		}))

		if config.HeartbeatEvery > 0 && (i+1)%config.HeartbeatEvery == 0 {
			lines = append(lines, mustLine(wireHeartbeat{
				Type: string(types.PriceTypeHeartbeat),
				Time: current.Format(time.RFC3339Nano),
			}))
		}

		current = current.Add(config.Interval)
	}

	return lines
}

// GenerateMultiInstrument interleaves quotes for several instruments tick by tick.
func (g *QuoteGenerator) GenerateMultiInstrument(instruments []string, baseConfig GeneratorConfig) []string {
	perInstrument := make([][]string, len(instruments))

	for i, instrument := range instruments {
		config := baseConfig
		config.Instrument = instrument
		// Vary initial price and volatility slightly per instrument
		config.InitialMid = baseConfig.InitialMid * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)
		perInstrument[i] = g.Generate(config)
	}

	var all []string

	for tick := 0; ; tick++ {
		added := false

		for _, lines := range perInstrument {
			if tick < len(lines) {
				all = append(all, lines[tick])
				added = true
			}
		}

		if !added {
			return all
		}
	}
}

func format(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

func mustLine(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return string(data) + "\n"
}
