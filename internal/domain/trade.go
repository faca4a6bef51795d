package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Trade is a single normalized tick from the upstream feed.
type Trade struct {
	Price       float64
	Quantity    float64
	EventTimeMs int64
}

// tradeFrame mirrors the fields of the Binance @trade stream we consume.
// Price and quantity arrive as decimal strings, but the feed contract only
// promises "string or number", so both are decoded permissively.
type tradeFrame struct {
	EventTime any `json:"E"`
	Price     any `json:"p"`
	Quantity  any `json:"q"`
}

// ParseTrade decodes one upstream message into a Trade. Any missing,
// mistyped, or unparsable field is an error; callers drop the message and
// keep the connection alive.
func ParseTrade(raw []byte) (Trade, error) {
	var frame tradeFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Trade{}, fmt.Errorf("decode trade frame: %w", err)
	}

	price, err := decodeDecimal(frame.Price)
	if err != nil {
		return Trade{}, fmt.Errorf("trade price: %w", err)
	}
	quantity, err := decodeDecimal(frame.Quantity)
	if err != nil {
		return Trade{}, fmt.Errorf("trade quantity: %w", err)
	}
	eventTime, err := decodeEventTime(frame.EventTime)
	if err != nil {
		return Trade{}, fmt.Errorf("trade event time: %w", err)
	}

	return Trade{
		Price:       price.InexactFloat64(),
		Quantity:    quantity.InexactFloat64(),
		EventTimeMs: eventTime,
	}, nil
}

func decodeDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

func decodeEventTime(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
