package domain

// TimeframeSeconds maps canonical timeframe keys to their bucket length in
// seconds. Subscriptions with a timeframe outside this table are rejected at
// the entry point, before any hub is looked up.
var TimeframeSeconds = map[string]int64{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
}

// CandleState is the open OHLCV bucket being aggregated for one hub.
// It is owned exclusively by that hub's ingestion loop: mutated in place
// while the bucket is open, replaced wholesale on rollover, never shared.
type CandleState struct {
	BucketStart int64   `json:"bucket_start"` // unix seconds, aligned to the timeframe grid
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}
