package domain

import (
	"math"
	"time"
)

// CandleUpdateType is the type tag every broadcast frame carries.
const CandleUpdateType = "candle_update"

// PayloadCandle is the candle record embedded in a broadcast frame.
type PayloadCandle struct {
	Timestamp string  `json:"timestamp"` // bucket start, RFC 3339 UTC
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// CandleUpdate is one frame sent to subscribers. Built once per broadcast
// and never mutated afterwards.
type CandleUpdate struct {
	Type        string        `json:"type"`
	Symbol      string        `json:"symbol"`
	Timeframe   string        `json:"timeframe"`
	EventTimeMs int64         `json:"event_time_ms"`
	ServerTime  string        `json:"server_time"`
	Candle      PayloadCandle `json:"candle"`
}

// NewCandleUpdate builds a broadcast frame for the given candle state.
// eventTimeMs is the triggering trade's event time, or bucket_start*1000 for
// synthetic gap candles.
func NewCandleUpdate(symbol, timeframe string, c CandleState, eventTimeMs int64) *CandleUpdate {
	return &CandleUpdate{
		Type:        CandleUpdateType,
		Symbol:      symbol,
		Timeframe:   timeframe,
		EventTimeMs: eventTimeMs,
		ServerTime:  time.Now().UTC().Format(time.RFC3339Nano),
		Candle: PayloadCandle{
			Timestamp: time.Unix(c.BucketStart, 0).UTC().Format(time.RFC3339),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		},
	}
}

// Valid reports whether the payload satisfies every broadcast invariant:
// correct type tag, finite strictly positive prices, finite non-negative
// volume, high >= max(open, close), low <= min(open, close), high >= low,
// and non-empty timestamps. It is a pure predicate: validating the same
// payload twice yields the same answer.
func (u *CandleUpdate) Valid() bool {
	if u == nil || u.Type != CandleUpdateType {
		return false
	}

	c := u.Candle
	for _, v := range [5]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	if c.Volume < 0 {
		return false
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) || c.High < c.Low {
		return false
	}
	if c.Timestamp == "" {
		return false
	}
	if u.ServerTime == "" {
		return false
	}
	return true
}
