package market

import (
	"marketstream/internal/domain"
)

// Aggregator folds a stream of trades into fixed-interval OHLCV buckets.
// It is pure state-transition logic: no locking, no I/O, one instance per hub.
type Aggregator struct {
	bucketSeconds int64
}

// NewAggregator creates an aggregator for the given bucket length.
func NewAggregator(bucketSeconds int64) Aggregator {
	return Aggregator{bucketSeconds: bucketSeconds}
}

// BucketStart returns the aligned bucket for an event time in milliseconds.
// Deterministic: independent of arrival order within the same bucket.
func (a Aggregator) BucketStart(eventTimeMs int64) int64 {
	seconds := eventTimeMs / 1000
	return (seconds / a.bucketSeconds) * a.bucketSeconds
}

// Apply folds one trade into the open candle. It returns the candle that is
// now open and whether a new bucket was opened (closing the previous one, if
// any). With no open candle, or a trade landing outside the open bucket, a
// fresh candle opens at the trade's price. Otherwise the open candle is
// updated in place.
func (a Aggregator) Apply(open *domain.CandleState, t domain.Trade) (*domain.CandleState, bool) {
	bucket := a.BucketStart(t.EventTimeMs)

	if open == nil || bucket != open.BucketStart {
		return &domain.CandleState{
			BucketStart: bucket,
			Open:        t.Price,
			High:        t.Price,
			Low:         t.Price,
			Close:       t.Price,
			Volume:      t.Quantity,
		}, true
	}

	if t.Price > open.High {
		open.High = t.Price
	}
	if t.Price < open.Low {
		open.Low = t.Price
	}
	open.Close = t.Price
	open.Volume += t.Quantity
	return open, false
}
