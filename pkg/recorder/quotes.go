package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// DefaultFlushEvery is how many writes a QuoteRecorder buffers before exporting.
const DefaultFlushEvery = 100

const quotesTable = "quotes"

var quoteColumns = []string{"id", "time", "instrument", "bid", "ask", "closeout_bid", "closeout_ask", "tradeable"}

// QuoteRecorder upserts quotes into DuckDB and periodically exports them to
// {dir}/quotes_{instruments}.parquet. Quotes recorded by earlier runs are loaded
// back on Initialize, so the file accumulates across restarts.
type QuoteRecorder struct {
	db         *sql.DB
	sq         squirrel.StatementBuilderType
	outputPath string
	flushEvery int
	pending    int
	logger     *logger.Logger
	mu         sync.Mutex
}

// QuoteRecorderOption configures a QuoteRecorder.
type QuoteRecorderOption func(*QuoteRecorder)

// WithFlushEvery exports after every n writes. Values below 1 export on each write.
func WithFlushEvery(n int) QuoteRecorderOption {
	return func(r *QuoteRecorder) {
		if n < 1 {
			n = 1
		}

		r.flushEvery = n
	}
}

// WithRecorderLogger sets the logger.
func WithRecorderLogger(log *logger.Logger) QuoteRecorderOption {
	return func(r *QuoteRecorder) {
		if log != nil {
			r.logger = log
		}
	}
}

// NewQuoteRecorder creates a recorder writing to dir. The file name is derived
// from the sorted instrument list.
func NewQuoteRecorder(dir string, instruments []string, opts ...QuoteRecorderOption) *QuoteRecorder {
	r := &QuoteRecorder{
		db:         nil,
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		outputPath: filepath.Join(dir, QuoteFileName(instruments)),
		flushEvery: DefaultFlushEvery,
		pending:    0,
		logger:     logger.NewNopLogger(),
		mu:         sync.Mutex{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// QuoteFileName returns quotes_{instruments}.parquet with instruments sorted and
// joined by "-".
func QuoteFileName(instruments []string) string {
	sorted := append([]string(nil), instruments...)
	slices.Sort(sorted)

	return fmt.Sprintf("quotes_%s.parquet", strings.Join(sorted, "-"))
}

// Initialize opens the in-memory database and loads the existing parquet file.
func (r *QuoteRecorder) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to create data directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to open DuckDB connection", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS quotes (
			id TEXT,
			time TIMESTAMP,
			instrument TEXT,
			bid DOUBLE,
			ask DOUBLE,
			closeout_bid DOUBLE,
			closeout_ask DOUBLE,
			tradeable BOOLEAN,
			PRIMARY KEY (instrument, time)
		)
	`)
	if err != nil {
		db.Close()

		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to create table", err)
	}

	r.db = db

	if _, err := os.Stat(r.outputPath); err == nil {
		_, err = r.db.Exec(fmt.Sprintf(`
			INSERT INTO quotes
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (instrument, time) DO NOTHING
		`, quoteLiteral(r.outputPath)))
		if err != nil {
			// A corrupt file is overwritten by the next export.
			r.logger.Warn("Failed to load recorded quotes",
				zap.String("path", r.outputPath),
				zap.Error(err),
			)
		}
	}

	r.logger.Debug("Quote recorder initialized", zap.String("path", r.outputPath))

	return nil
}

// Write upserts q. The latest quote for an (instrument, time) pair wins.
func (r *QuoteRecorder) Write(q Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return errors.New(errors.ErrCodeRecorderNotReady, "recorder not initialized")
	}

	query, args, err := r.sq.Insert(quotesTable).
		Columns(quoteColumns...).
		Values(
			uuid.New().String(),
			q.Time.UTC(),
			q.Instrument,
			q.Bid.InexactFloat64(),
			q.Ask.InexactFloat64(),
			q.CloseoutBid.InexactFloat64(),
			q.CloseoutAsk.InexactFloat64(),
			q.Tradeable,
		).
		Suffix(`ON CONFLICT (instrument, time) DO UPDATE SET
			id = excluded.id,
			bid = excluded.bid,
			ask = excluded.ask,
			closeout_bid = excluded.closeout_bid,
			closeout_ask = excluded.closeout_ask,
			tradeable = excluded.tradeable`).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to build insert", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to insert quote", err)
	}

	r.pending++
	if r.pending >= r.flushEvery {
		return r.export()
	}

	return nil
}

// Flush exports all recorded quotes.
func (r *QuoteRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return errors.New(errors.ErrCodeRecorderNotReady, "recorder not initialized")
	}

	return r.export()
}

// Count returns the number of recorded quotes.
func (r *QuoteRecorder) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return 0, errors.New(errors.ErrCodeRecorderNotReady, "recorder not initialized")
	}

	query, args, err := r.sq.Select("COUNT(*)").From(quotesTable).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to build count", err)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to count quotes", err)
	}

	return count, nil
}

// Range returns the quotes of instrument with from <= time < to in time order.
func (r *QuoteRecorder) Range(instrument string, from, to time.Time) ([]Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil, errors.New(errors.ErrCodeRecorderNotReady, "recorder not initialized")
	}

	query, args, err := r.sq.Select(quoteColumns[1:]...).
		From(quotesTable).
		Where(squirrel.And{
			squirrel.Eq{"instrument": instrument},
			squirrel.GtOrEq{"time": from.UTC()},
			squirrel.Lt{"time": to.UTC()},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to build query", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to query quotes", err)
	}
	defer rows.Close()

	var quotes []Quote

	for rows.Next() {
		var (
			q                                  Quote
			bid, ask, closeoutBid, closeoutAsk float64
		)

		if err := rows.Scan(&q.Time, &q.Instrument, &bid, &ask, &closeoutBid, &closeoutAsk, &q.Tradeable); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to scan quote", err)
		}

		q.Bid = decimal.NewFromFloat(bid)
		q.Ask = decimal.NewFromFloat(ask)
		q.CloseoutBid = decimal.NewFromFloat(closeoutBid)
		q.CloseoutAsk = decimal.NewFromFloat(closeoutAsk)
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to read quotes", err)
	}

	return quotes, nil
}

// OutputPath returns the parquet file path.
func (r *QuoteRecorder) OutputPath() string {
	return r.outputPath
}

// Close exports pending quotes and releases the database.
func (r *QuoteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}

	exportErr := r.export()

	if err := r.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to close database", err)
	}

	r.db = nil

	return exportErr
}

func (r *QuoteRecorder) export() error {
	_, err := r.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM quotes ORDER BY time ASC)
		TO '%s' (FORMAT PARQUET)
	`, quoteLiteral(r.outputPath)))
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to export to parquet", err)
	}

	r.logger.Debug("Exported quotes", zap.String("path", r.outputPath), zap.Int("pending", r.pending))
	r.pending = 0

	return nil
}

// quoteLiteral escapes s for use inside a single quoted SQL string.
func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

var _ QuoteWriter = (*QuoteRecorder)(nil)
