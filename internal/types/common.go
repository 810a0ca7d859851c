package types

// TimeInForce specifies how long an order remains pending.
// https://developer.oanda.com/rest-live-v20/order-df/#TimeInForce
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good until cancelled
	TimeInForceGTD TimeInForce = "GTD" // Good until date
	TimeInForceGFD TimeInForce = "GFD" // Good for day
	TimeInForceFOK TimeInForce = "FOK" // Filled or killed
	TimeInForceIOC TimeInForce = "IOC" // Immediate or cancelled
)

var timeInForceValues = []TimeInForce{
	TimeInForceGTC, TimeInForceGTD, TimeInForceGFD, TimeInForceFOK, TimeInForceIOC,
}

// OrderTriggerCondition selects the price component a trigger compares against.
// https://developer.oanda.com/rest-live-v20/order-df/#OrderTriggerCondition
type OrderTriggerCondition string

const (
	OrderTriggerConditionDefault OrderTriggerCondition = "DEFAULT"
	OrderTriggerConditionInverse OrderTriggerCondition = "INVERSE"
	OrderTriggerConditionBid     OrderTriggerCondition = "BID"
	OrderTriggerConditionAsk     OrderTriggerCondition = "ASK"
	OrderTriggerConditionMid     OrderTriggerCondition = "MID"
)

var orderTriggerConditionValues = []OrderTriggerCondition{
	OrderTriggerConditionDefault, OrderTriggerConditionInverse,
	OrderTriggerConditionBid, OrderTriggerConditionAsk, OrderTriggerConditionMid,
}

// OrderPositionFill specifies how positions are modified when an order fills.
// https://developer.oanda.com/rest-live-v20/order-df/#OrderPositionFill
type OrderPositionFill string

const (
	OrderPositionFillOpenOnly    OrderPositionFill = "OPEN_ONLY"
	OrderPositionFillReduceFirst OrderPositionFill = "REDUCE_FIRST"
	OrderPositionFillReduceOnly  OrderPositionFill = "REDUCE_ONLY"
	OrderPositionFillDefault     OrderPositionFill = "DEFAULT"
)

var orderPositionFillValues = []OrderPositionFill{
	OrderPositionFillOpenOnly, OrderPositionFillReduceFirst,
	OrderPositionFillReduceOnly, OrderPositionFillDefault,
}

// ClientExtensions lets a client attach its own id, tag and comment to orders and trades.
// https://developer.oanda.com/rest-live-v20/transaction-df/#ClientExtensions
type ClientExtensions struct {
	ID      string `json:"id,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Comment string `json:"comment,omitempty"`
}

func parseClientExtensions(f fields) (ClientExtensions, error) {
	id, err := f.strOr("id", "")
	if err != nil {
		return ClientExtensions{}, err
	}

	tag, err := f.strOr("tag", "")
	if err != nil {
		return ClientExtensions{}, err
	}

	comment, err := f.strOr("comment", "")
	if err != nil {
		return ClientExtensions{}, err
	}

	return ClientExtensions{ID: id, Tag: tag, Comment: comment}, nil
}
