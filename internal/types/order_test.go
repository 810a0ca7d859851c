package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestLimitOrderRequestJSON() {
	req := NewLimitOrderRequest("USD_JPY", decimal.NewFromInt(100), decimal.RequireFromString("147.5"))
	req.TakeProfitOnFill = optional.Some(TakeProfitDetails{
		Price:       decimal.RequireFromString("148.0"),
		TimeInForce: TimeInForceGTC,
	})

	body, err := json.Marshal(req)
	suite.Require().NoError(err)
	suite.JSONEq(`{
		"type": "LIMIT",
		"instrument": "USD_JPY",
		"units": "100",
		"price": "147.5",
		"timeInForce": "GTC",
		"positionFill": "DEFAULT",
		"triggerCondition": "DEFAULT",
		"takeProfitOnFill": {"price": "148", "timeInForce": "GTC"}
	}`, string(body))
}

func (suite *OrderTestSuite) TestMarketOrderRequestJSON() {
	req := NewMarketOrderRequest("EUR_USD", decimal.NewFromInt(-5))
	req.ClientExtensions = optional.Some(ClientExtensions{ID: "abc"})

	body, err := json.Marshal(req)
	suite.Require().NoError(err)
	suite.JSONEq(`{
		"type": "MARKET",
		"instrument": "EUR_USD",
		"units": "-5",
		"timeInForce": "FOK",
		"positionFill": "DEFAULT",
		"clientExtensions": {"id": "abc"}
	}`, string(body))
}

func (suite *OrderTestSuite) TestLimitOrderRequestValidate() {
	tests := []struct {
		name        string
		mutate      func(*LimitOrderRequest)
		expectError bool
	}{
		{
			name:   "valid",
			mutate: func(*LimitOrderRequest) {},
		},
		{
			name:        "missing instrument",
			mutate:      func(r *LimitOrderRequest) { r.Instrument = "" },
			expectError: true,
		},
		{
			name:        "zero units",
			mutate:      func(r *LimitOrderRequest) { r.Units = decimal.Zero },
			expectError: true,
		},
		{
			name:        "negative price",
			mutate:      func(r *LimitOrderRequest) { r.Price = decimal.NewFromInt(-1) },
			expectError: true,
		},
		{
			name:        "GTD without gtdTime",
			mutate:      func(r *LimitOrderRequest) { r.TimeInForce = TimeInForceGTD },
			expectError: true,
		},
		{
			name: "GTD with gtdTime",
			mutate: func(r *LimitOrderRequest) {
				r.TimeInForce = TimeInForceGTD
				r.GTDTime = optional.Some(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
			},
		},
		{
			name:        "unknown time in force",
			mutate:      func(r *LimitOrderRequest) { r.TimeInForce = "FOREVER" },
			expectError: true,
		},
		{
			name: "stop loss with price and distance",
			mutate: func(r *LimitOrderRequest) {
				r.StopLossOnFill = optional.Some(StopLossDetails{
					Price:       optional.Some(decimal.NewFromInt(140)),
					Distance:    optional.Some(decimal.NewFromInt(2)),
					TimeInForce: TimeInForceGTC,
				})
			},
			expectError: true,
		},
		{
			name: "stop loss with distance",
			mutate: func(r *LimitOrderRequest) {
				r.StopLossOnFill = optional.Some(StopLossDetails{
					Distance:    optional.Some(decimal.NewFromInt(2)),
					TimeInForce: TimeInForceGTC,
				})
			},
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			req := NewLimitOrderRequest("USD_JPY", decimal.NewFromInt(100), decimal.RequireFromString("147.5"))
			tt.mutate(&req)

			err := req.Validate()
			if tt.expectError {
				suite.Error(err)
				suite.Equal(errors.ErrCodeInvalidOrderRequest, errors.GetCode(err))

				return
			}

			suite.NoError(err)
		})
	}
}

func (suite *OrderTestSuite) TestMarketOrderRequestValidate() {
	req := NewMarketOrderRequest("EUR_USD", decimal.NewFromInt(10))
	suite.NoError(req.Validate())

	req.TimeInForce = TimeInForceGTC
	suite.Error(req.Validate())

	req = NewMarketOrderRequest("EUR_USD", decimal.NewFromInt(10))
	req.PriceBound = optional.Some(decimal.Zero)
	suite.Error(req.Validate())
}
