package market

import (
	"marketstream/internal/domain"
)

// MissingCandles returns one synthetic flat candle for every bucket strictly
// between the previous candle and nextBucketStart, in increasing time order.
// Each carries the previous close as all four prices and zero volume, so
// subscribers see a continuous time axis across feed gaps. A gap of zero or
// one bucket yields nil.
func (a Aggregator) MissingCandles(prev domain.CandleState, nextBucketStart int64) []domain.CandleState {
	var missing []domain.CandleState

	carry := prev.Close
	for current := prev.BucketStart + a.bucketSeconds; current < nextBucketStart; current += a.bucketSeconds {
		missing = append(missing, domain.CandleState{
			BucketStart: current,
			Open:        carry,
			High:        carry,
			Low:         carry,
			Close:       carry,
			Volume:      0,
		})
	}

	return missing
}
