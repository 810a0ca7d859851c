package recorder

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type CandleRecorderTestSuite struct {
	suite.Suite
	outputPath string
}

func TestCandleRecorderSuite(t *testing.T) {
	suite.Run(t, new(CandleRecorderTestSuite))
}

func (suite *CandleRecorderTestSuite) SetupTest() {
	suite.outputPath = filepath.Join(suite.T().TempDir(), "nested", "candles.parquet")
}

func ohlc(o, h, l, c string) types.CandlestickData {
	return types.CandlestickData{
		O: decimal.RequireFromString(o),
		H: decimal.RequireFromString(h),
		L: decimal.RequireFromString(l),
		C: decimal.RequireFromString(c),
	}
}

func (suite *CandleRecorderTestSuite) TestFileName() {
	suite.Equal("USD_JPY_M1_20250301_20250302.parquet",
		CandleFileName("USD_JPY", types.GranularityM1, "20250301", "20250302"))
}

func (suite *CandleRecorderTestSuite) TestWriteBeforeInitialize() {
	w := NewCandleRecorder(suite.outputPath, nil)

	err := w.Write("USD_JPY", types.Candlestick{})
	suite.Equal(errors.ErrCodeRecorderNotReady, errors.GetCode(err))

	_, err = w.Finalize()
	suite.Equal(errors.ErrCodeRecorderNotReady, errors.GetCode(err))

	suite.NoError(w.Close())
}

func (suite *CandleRecorderTestSuite) TestFinalizeExportsInTimeOrder() {
	w := NewCandleRecorder(suite.outputPath, nil)
	suite.Require().NoError(w.Initialize())
	defer w.Close()

	start := time.Date(2025, 3, 24, 15, 0, 0, 0, time.UTC)

	candles := []types.Candlestick{
		{Time: start.Add(2 * time.Minute), Volume: 12, Complete: false, Mid: optional.Some(ohlc("150.70", "150.72", "150.69", "150.71"))},
		{Time: start, Volume: 10, Complete: true, Mid: optional.Some(ohlc("150.60", "150.65", "150.58", "150.64"))},
		{Time: start.Add(time.Minute), Volume: 11, Complete: true, Bid: optional.Some(ohlc("150.64", "150.70", "150.62", "150.69"))},
		// No price component: skipped.
		{Time: start.Add(3 * time.Minute), Volume: 1, Complete: true},
	}

	for _, c := range candles {
		suite.Require().NoError(w.Write("USD_JPY", c))
	}

	suite.Equal(3, w.Written())

	path, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(suite.outputPath, path)

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	rows, err := db.Query("SELECT time, instrument, open, close, volume, complete FROM read_parquet('" + path + "')")
	suite.Require().NoError(err)
	defer rows.Close()

	var (
		times  []time.Time
		closes []float64
		vols   []int64
		done   []bool
	)

	for rows.Next() {
		var (
			ts         time.Time
			instrument string
			open, cl   float64
			volume     int64
			complete   bool
		)

		suite.Require().NoError(rows.Scan(&ts, &instrument, &open, &cl, &volume, &complete))
		suite.Equal("USD_JPY", instrument)

		times = append(times, ts)
		closes = append(closes, cl)
		vols = append(vols, volume)
		done = append(done, complete)
	}

	suite.Require().NoError(rows.Err())
	suite.Require().Len(times, 3)

	for i := range times {
		suite.True(start.Add(time.Duration(i) * time.Minute).Equal(times[i]))
	}

	suite.InDeltaSlice([]float64{150.64, 150.69, 150.71}, closes, 1e-9)
	suite.Equal([]int64{10, 11, 12}, vols)
	suite.Equal([]bool{true, true, false}, done)
}

func (suite *CandleRecorderTestSuite) TestCloseWithoutFinalizeDiscards() {
	w := NewCandleRecorder(suite.outputPath, nil)
	suite.Require().NoError(w.Initialize())

	suite.Require().NoError(w.Write("USD_JPY", types.Candlestick{
		Time: time.Now().UTC(),
		Mid:  optional.Some(ohlc("1", "1", "1", "1")),
	}))

	suite.NoError(w.Close())

	_, err := w.Finalize()
	suite.Equal(errors.ErrCodeRecorderNotReady, errors.GetCode(err))
}
