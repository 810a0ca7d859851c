package stream

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type SubscriptionTestSuite struct {
	suite.Suite
}

func TestSubscriptionSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionTestSuite))
}

const accountStreamURL = "https://stream-fxpractice.oanda.com/v3/accounts/101-009-31084545-001"

func (suite *SubscriptionTestSuite) TestPricingRequest() {
	instruments := []string{"USD_JPY", "EUR_USD"}

	sub, err := NewPricingSubscription(accountStreamURL+"/", "token", instruments)
	suite.Require().NoError(err)

	// Mutating the caller's slice must not leak into the subscription.
	instruments[0] = "GBP_USD"
	suite.Equal([]string{"USD_JPY", "EUR_USD"}, sub.Instruments())
	suite.Equal(KindPricing, sub.Kind())

	req := sub.Request()
	suite.Equal(accountStreamURL+"/pricing/stream", req.URL)
	suite.Equal("token", req.Token)
	suite.Equal("USD_JPY,EUR_USD", req.Query.Get("instruments"))
}

func (suite *SubscriptionTestSuite) TestTransactionRequest() {
	sub, err := NewTransactionSubscription(accountStreamURL, "token")
	suite.Require().NoError(err)

	req := sub.Request()
	suite.Equal(KindTransactions, sub.Kind())
	suite.Equal(accountStreamURL+"/transactions/stream", req.URL)
	suite.Empty(req.Query)
}

func (suite *SubscriptionTestSuite) TestInvalidSubscriptions() {
	_, err := NewPricingSubscription(accountStreamURL, "token", nil)
	suite.Equal(errors.ErrCodeMissingParameter, errors.GetCode(err))

	_, err = NewTransactionSubscription(accountStreamURL, "")
	suite.Equal(errors.ErrCodeMissingParameter, errors.GetCode(err))

	_, err = NewTransactionSubscription("not a url", "token")
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}
