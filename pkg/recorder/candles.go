package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

var candleColumns = []string{"id", "time", "instrument", "open", "high", "low", "close", "volume", "complete"}

// CandleRecorder writes a download of candles to a single parquet file. Rows are
// inserted inside one transaction that Finalize commits before exporting.
type CandleRecorder struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	written    int
	logger     *logger.Logger
}

// NewCandleRecorder creates a recorder writing to outputPath.
func NewCandleRecorder(outputPath string, log *logger.Logger) *CandleRecorder {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CandleRecorder{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
		written:    0,
		logger:     log,
	}
}

// CandleFileName returns {instrument}_{granularity}_{from}_{to}.parquet.
func CandleFileName(instrument string, granularity types.CandlestickGranularity, from, to string) string {
	return fmt.Sprintf("%s_%s_%s_%s.parquet", instrument, granularity, from, to)
}

// Initialize opens the database, begins the transaction and prepares the insert.
func (w *CandleRecorder) Initialize() (err error) {
	if dir := filepath.Dir(w.outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to create output directory", err)
		}
	}

	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to open DuckDB connection", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			id TEXT,
			time TIMESTAMP,
			instrument TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume BIGINT,
			complete BOOLEAN
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to create table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to begin transaction", err)
	}

	insert, _, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Insert("candles").
		Columns(candleColumns...).
		Values(make([]any, len(candleColumns))...).
		ToSql()
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to build insert", err)
	}

	w.stmt, err = w.tx.Prepare(insert)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to prepare statement", err)
	}

	return nil
}

// Write inserts one candle. The mid prices are stored when present, otherwise the
// bid and then the ask. Candles without any price component are skipped.
func (w *CandleRecorder) Write(instrument string, c types.Candlestick) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeRecorderNotReady, "recorder not initialized")
	}

	ohlc, ok := candlePrices(c)
	if !ok {
		w.logger.Debug("Skipping candle without prices", zap.Time("time", c.Time))

		return nil
	}

	_, err := w.stmt.Exec(
		uuid.New().String(),
		c.Time.UTC(),
		instrument,
		ohlc.O.InexactFloat64(),
		ohlc.H.InexactFloat64(),
		ohlc.L.InexactFloat64(),
		ohlc.C.InexactFloat64(),
		c.Volume,
		c.Complete,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to insert candle", err)
	}

	w.written++

	return nil
}

// Written returns how many candles have been inserted.
func (w *CandleRecorder) Written() int {
	return w.written
}

// Finalize commits the transaction and exports the candles in time order.
func (w *CandleRecorder) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeRecorderNotReady, "recorder not initialized")
	}

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to commit transaction", err)
	}

	w.tx = nil

	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM candles ORDER BY time ASC)
		TO '%s' (FORMAT PARQUET)
	`, quoteLiteral(w.outputPath)))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to export to parquet", err)
	}

	w.logger.Info("Exported candles",
		zap.String("path", w.outputPath),
		zap.Int("count", w.written),
	)

	return w.outputPath, nil
}

// OutputPath returns the parquet file path.
func (w *CandleRecorder) OutputPath() string {
	return w.outputPath
}

// Close releases the statement, rolls back an unfinished transaction and closes
// the database.
func (w *CandleRecorder) Close() error {
	var closeErrors []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to close statement", err))
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			w.logger.Warn("Failed to rollback transaction during close", zap.Error(err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to close database", err))
		}

		w.db = nil
	}

	return errors.Join(closeErrors...)
}

func candlePrices(c types.Candlestick) (types.CandlestickData, bool) {
	switch {
	case c.Mid.IsSome():
		return c.Mid.Unwrap(), true
	case c.Bid.IsSome():
		return c.Bid.Unwrap(), true
	case c.Ask.IsSome():
		return c.Ask.Unwrap(), true
	default:
		return types.CandlestickData{}, false
	}
}

var _ CandleWriter = (*CandleRecorder)(nil)
