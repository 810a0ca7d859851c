package recorder

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type QuoteRecorderTestSuite struct {
	suite.Suite
	tempDir string
}

func TestQuoteRecorderSuite(t *testing.T) {
	suite.Run(t, new(QuoteRecorderTestSuite))
}

func (suite *QuoteRecorderTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

var baseTime = time.Date(2025, 3, 24, 15, 34, 25, 0, time.UTC)

func testQuote(instrument string, i int) Quote {
	bid := decimal.RequireFromString("150.693").Add(decimal.New(int64(i), -3))

	return Quote{
		Time:        baseTime.Add(time.Duration(i) * time.Second),
		Instrument:  instrument,
		Bid:         bid,
		Ask:         bid.Add(decimal.RequireFromString("0.004")),
		CloseoutBid: bid.Sub(decimal.RequireFromString("0.001")),
		CloseoutAsk: bid.Add(decimal.RequireFromString("0.005")),
		Tradeable:   true,
	}
}

func countParquet(suite *QuoteRecorderTestSuite, path string) int {
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM read_parquet('" + path + "')").Scan(&count)
	suite.Require().NoError(err)

	return count
}

func (suite *QuoteRecorderTestSuite) TestFileNamingPattern() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY", "EUR_USD"})
	suite.Equal(filepath.Join(suite.tempDir, "quotes_EUR_USD-USD_JPY.parquet"), r.OutputPath())

	r2 := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"})
	suite.Equal(filepath.Join(suite.tempDir, "quotes_USD_JPY.parquet"), r2.OutputPath())
}

func (suite *QuoteRecorderTestSuite) TestWriteBeforeInitialize() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"})

	err := r.Write(testQuote("USD_JPY", 0))
	suite.Equal(errors.ErrCodeRecorderNotReady, errors.GetCode(err))

	_, err = r.Count()
	suite.Equal(errors.ErrCodeRecorderNotReady, errors.GetCode(err))

	suite.Equal(errors.ErrCodeRecorderNotReady, errors.GetCode(r.Flush()))
	suite.NoError(r.Close())
}

func (suite *QuoteRecorderTestSuite) TestWriteExportsEveryN() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"}, WithFlushEvery(3))
	suite.Require().NoError(r.Initialize())
	defer r.Close()

	suite.Require().NoError(r.Write(testQuote("USD_JPY", 0)))
	suite.Require().NoError(r.Write(testQuote("USD_JPY", 1)))

	_, err := os.Stat(r.OutputPath())
	suite.True(os.IsNotExist(err))

	suite.Require().NoError(r.Write(testQuote("USD_JPY", 2)))
	suite.Equal(3, countParquet(suite, r.OutputPath()))

	suite.Require().NoError(r.Write(testQuote("USD_JPY", 3)))
	suite.Require().NoError(r.Flush())
	suite.Equal(4, countParquet(suite, r.OutputPath()))
}

func (suite *QuoteRecorderTestSuite) TestUpsertSameTime() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"}, WithFlushEvery(1))
	suite.Require().NoError(r.Initialize())
	defer r.Close()

	first := testQuote("USD_JPY", 0)
	second := first
	second.Bid = decimal.RequireFromString("151.000")
	second.Ask = decimal.RequireFromString("151.004")

	suite.Require().NoError(r.Write(first))
	suite.Require().NoError(r.Write(second))

	count, err := r.Count()
	suite.Require().NoError(err)
	suite.Equal(1, count)

	quotes, err := r.Range("USD_JPY", baseTime, baseTime.Add(time.Second))
	suite.Require().NoError(err)
	suite.Require().Len(quotes, 1)
	suite.True(decimal.RequireFromString("151").Equal(quotes[0].Bid))

	// Same time on another instrument is a separate row.
	suite.Require().NoError(r.Write(testQuote("EUR_USD", 0)))
	count, err = r.Count()
	suite.Require().NoError(err)
	suite.Equal(2, count)
}

func (suite *QuoteRecorderTestSuite) TestRangeFiltersAndOrders() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY", "EUR_USD"}, WithFlushEvery(100))
	suite.Require().NoError(r.Initialize())
	defer r.Close()

	for _, i := range []int{4, 0, 3, 1, 2} {
		suite.Require().NoError(r.Write(testQuote("USD_JPY", i)))
		suite.Require().NoError(r.Write(testQuote("EUR_USD", i)))
	}

	quotes, err := r.Range("USD_JPY", baseTime.Add(time.Second), baseTime.Add(4*time.Second))
	suite.Require().NoError(err)
	suite.Require().Len(quotes, 3)

	for i, q := range quotes {
		suite.Equal("USD_JPY", q.Instrument)
		suite.True(baseTime.Add(time.Duration(i+1)*time.Second).Equal(q.Time))
		suite.True(q.Tradeable)
		suite.Equal("150.695", q.Mid().Sub(decimal.New(int64(i+1), -3)).StringFixed(3))
	}
}

func (suite *QuoteRecorderTestSuite) TestReloadsExistingFile() {
	first := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"})
	suite.Require().NoError(first.Initialize())

	for i := 0; i < 5; i++ {
		suite.Require().NoError(first.Write(testQuote("USD_JPY", i)))
	}

	// Close exports what the flush interval held back.
	suite.Require().NoError(first.Close())
	suite.Equal(5, countParquet(suite, first.OutputPath()))

	second := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"})
	suite.Require().NoError(second.Initialize())
	defer second.Close()

	for i := 3; i < 8; i++ {
		suite.Require().NoError(second.Write(testQuote("USD_JPY", i)))
	}

	count, err := second.Count()
	suite.Require().NoError(err)
	suite.Equal(8, count)

	suite.Require().NoError(second.Flush())
	suite.Equal(8, countParquet(suite, second.OutputPath()))
}

func (suite *QuoteRecorderTestSuite) TestCorruptFileIsReplaced() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"}, WithFlushEvery(1))
	suite.Require().NoError(os.WriteFile(r.OutputPath(), []byte("not parquet"), 0644))

	suite.Require().NoError(r.Initialize())
	defer r.Close()

	suite.Require().NoError(r.Write(testQuote("USD_JPY", 0)))
	suite.Equal(1, countParquet(suite, r.OutputPath()))
}

func (suite *QuoteRecorderTestSuite) TestConcurrentWrites() {
	r := NewQuoteRecorder(suite.tempDir, []string{"USD_JPY"}, WithFlushEvery(25))
	suite.Require().NoError(r.Initialize())
	defer r.Close()

	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)

		go func(offset int) {
			defer wg.Done()

			for i := 0; i < 25; i++ {
				suite.NoError(r.Write(testQuote("USD_JPY", offset*25+i)))
			}
		}(w)
	}

	wg.Wait()

	count, err := r.Count()
	suite.Require().NoError(err)
	suite.Equal(100, count)
}

func (suite *QuoteRecorderTestSuite) TestQuoteFromPrice() {
	price := types.ClientPrice{
		Instrument: optional.Some("USD_JPY"),
		Timestamp:  baseTime,
		Tradeable:  optional.Some(true),
		Bids: []types.PriceBucket{
			{Price: decimal.RequireFromString("150.693"), Liquidity: 1000000},
			{Price: decimal.RequireFromString("150.692"), Liquidity: 2000000},
		},
		Asks: []types.PriceBucket{
			{Price: decimal.RequireFromString("150.697"), Liquidity: 1000000},
		},
		CloseoutBid: decimal.RequireFromString("150.692"),
		CloseoutAsk: decimal.RequireFromString("150.698"),
	}

	q, ok := QuoteFromPrice(price)
	suite.Require().True(ok)
	suite.Equal("USD_JPY", q.Instrument)
	suite.Equal("150.693", q.Bid.String())
	suite.Equal("150.697", q.Ask.String())
	suite.Equal("150.695", q.Mid().String())
	suite.True(q.Tradeable)

	price.Asks = nil
	_, ok = QuoteFromPrice(price)
	suite.False(ok)

	price.Asks = []types.PriceBucket{{Price: decimal.RequireFromString("150.697")}}
	price.Instrument = optional.None[string]()
	_, ok = QuoteFromPrice(price)
	suite.False(ok)
}
