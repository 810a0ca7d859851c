package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/internal/config"
	"github.com/rxtech-lab/argo-oanda/internal/mockserver"
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
	"github.com/rxtech-lab/argo-oanda/pkg/oanda"
)

// syncBuffer is a bytes.Buffer safe to read while a command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

type CLITestSuite struct {
	suite.Suite
	server *mockserver.MockOANDAServer
	dir    string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (suite *CLITestSuite) SetupTest() {
	serverConfig := mockserver.DefaultServerConfig()
	serverConfig.StreamInterval = time.Millisecond
	serverConfig.HeartbeatInterval = 10 * time.Millisecond

	suite.server = mockserver.NewMockOANDAServer(serverConfig)
	suite.Require().NoError(suite.server.Start("127.0.0.1:0"))

	suite.dir = suite.T().TempDir()

	suite.T().Setenv(config.EnvToken, serverConfig.Token)
	suite.T().Setenv(config.EnvAccountID, serverConfig.AccountID)
	suite.T().Setenv(config.EnvRESTURL, suite.server.BaseURL())
	suite.T().Setenv(config.EnvStreamURL, suite.server.BaseURL())
	suite.T().Setenv(config.EnvEnvironment, "practice")
}

func (suite *CLITestSuite) TearDownTest() {
	suite.NoError(suite.server.Stop())
}

// run executes the CLI with the global flags every test needs.
func (suite *CLITestSuite) run(ctx context.Context, out *syncBuffer, args ...string) error {
	argv := append([]string{
		"oanda",
		"--env-file", filepath.Join(suite.dir, "missing.env"),
		"--log-level", "error",
	}, args...)

	return newApp(out, &syncBuffer{}).Run(ctx, argv)
}

func (suite *CLITestSuite) TestPricesPrintsAndRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := &syncBuffer{}
	record := filepath.Join(suite.dir, "quotes")

	err := suite.run(ctx, out, "prices", "--instruments", "usd_jpy", "--limit", "5", "--record", record)
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	suite.Require().Len(lines, 5)

	for _, line := range lines {
		suite.Contains(line, " USD_JPY ")
		suite.Contains(line, "/")
	}

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM read_parquet('" + filepath.Join(record, "quotes_USD_JPY.parquet") + "')").Scan(&count)
	suite.Require().NoError(err)
	suite.Equal(5, count)
}

func (suite *CLITestSuite) TestPricesStopsOnCancel() {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := suite.run(ctx, &syncBuffer{}, "prices", "--instruments", "USD_JPY")
	suite.NoError(err)
}

func (suite *CLITestSuite) TestTransactionsPrintsOrderActivity() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)

	go func() {
		done <- suite.run(ctx, out, "transactions", "--limit", "2")
	}()

	cfg, err := config.Load("")
	suite.Require().NoError(err)

	client, err := oanda.NewClient(cfg)
	suite.Require().NoError(err)

	// The stream only sees transactions created after it subscribed, so keep
	// placing orders until the command has printed enough.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			suite.Require().NoError(err)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			suite.Require().Len(lines, 2)
			suite.Contains(out.String(), "USD_JPY units=100")

			return
		case <-ticker.C:
			_, err := client.Orders().CreateMarketOrder(ctx, types.NewMarketOrderRequest("USD_JPY", decimal.NewFromInt(100)))
			suite.Require().NoError(err)
		case <-ctx.Done():
			suite.FailNow("transactions command did not finish")
		}
	}
}

func (suite *CLITestSuite) TestCandlesPrintsRecent() {
	out := &syncBuffer{}

	err := suite.run(context.Background(), out, "candles", "--instrument", "USD_JPY", "--granularity", "M5", "--count", "4")
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	suite.Require().Len(lines, 4)
	suite.Contains(lines[0], "O=")
	suite.Contains(lines[0], "volume=")
}

func (suite *CLITestSuite) TestCandlesDownload() {
	out := &syncBuffer{}
	dir := filepath.Join(suite.dir, "candles")

	err := suite.run(context.Background(), out,
		"candles", "--instrument", "USD_JPY", "--granularity", "H1",
		"--from", "2025-03-20", "--to", "2025-03-21", "--output", dir,
	)
	suite.Require().NoError(err)

	path := filepath.Join(dir, "USD_JPY_H1_2025-03-20_2025-03-21.parquet")
	suite.Contains(out.String(), "Saved candles to "+path)

	_, statErr := os.Stat(path)
	suite.NoError(statErr)
}

func (suite *CLITestSuite) TestCandlesRejectsBadGranularity() {
	err := suite.run(context.Background(), &syncBuffer{}, "candles", "--instrument", "USD_JPY", "--granularity", "W")
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *CLITestSuite) TestConfigSchema() {
	out := &syncBuffer{}

	suite.Require().NoError(suite.run(context.Background(), out, "config", "schema"))
	suite.Contains(out.String(), `"title":"oanda-config"`)
}

func (suite *CLITestSuite) TestConfigShowRedactsToken() {
	out := &syncBuffer{}

	suite.Require().NoError(suite.run(context.Background(), out, "config", "show"))
	suite.Contains(out.String(), "********")
	suite.NotContains(out.String(), "mock-token")
	suite.Contains(out.String(), "101-009-00000000-001")
}

func (suite *CLITestSuite) TestVersion() {
	out := &syncBuffer{}

	suite.Require().NoError(suite.run(context.Background(), out, "version"))
	suite.Contains(out.String(), "oanda main (config format 1.1.0)")
}

func (suite *CLITestSuite) TestMissingCredentials() {
	suite.T().Setenv(config.EnvToken, "")
	suite.T().Setenv(config.EnvAccountID, "")

	err := suite.run(context.Background(), &syncBuffer{}, "prices", "--instruments", "USD_JPY")
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func TestParseInstruments(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "single", input: []string{"USD_JPY"}, expected: []string{"USD_JPY"}},
		{name: "comma separated", input: []string{"USD_JPY,EUR_USD"}, expected: []string{"USD_JPY", "EUR_USD"}},
		{name: "spaces and case", input: []string{" usd_jpy , eur_usd "}, expected: []string{"USD_JPY", "EUR_USD"}},
		{name: "several values", input: []string{"USD_JPY", "GBP_USD"}, expected: []string{"USD_JPY", "GBP_USD"}},
		{name: "empty", input: []string{""}, expected: []string{}},
		{name: "only commas", input: []string{",,,"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseInstruments(tt.input...))
		})
	}
}
