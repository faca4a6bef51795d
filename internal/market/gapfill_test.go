package market

import (
	"testing"

	"marketstream/internal/domain"
)

func TestMissingCandles(t *testing.T) {
	prev := domain.CandleState{
		BucketStart: 1_700_000_100,
		Open:        100,
		High:        110,
		Low:         90,
		Close:       104,
		Volume:      12,
	}

	tests := []struct {
		name            string
		bucketSeconds   int64
		nextBucketStart int64
		wantBuckets     []int64
	}{
		{"adjacent bucket", 300, 1_700_000_400, nil},
		{"one skipped", 300, 1_700_000_700, []int64{1_700_000_400}},
		{"two skipped", 300, 1_700_001_000, []int64{1_700_000_400, 1_700_000_700}},
		{"same bucket", 300, 1_700_000_100, nil},
		{"out of order", 300, 1_699_999_800, nil},
		{"one skipped 1m", 60, 1_700_000_220, []int64{1_700_000_160}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(tt.bucketSeconds)
			got := agg.MissingCandles(prev, tt.nextBucketStart)
			if len(got) != len(tt.wantBuckets) {
				t.Fatalf("got %d candles, want %d", len(got), len(tt.wantBuckets))
			}
			for i, c := range got {
				if c.BucketStart != tt.wantBuckets[i] {
					t.Errorf("candle %d bucket = %d, want %d", i, c.BucketStart, tt.wantBuckets[i])
				}
				if c.Open != prev.Close || c.High != prev.Close || c.Low != prev.Close || c.Close != prev.Close {
					t.Errorf("candle %d is not flat at prior close: %+v", i, c)
				}
				if c.Volume != 0 {
					t.Errorf("candle %d volume = %v, want 0", i, c.Volume)
				}
			}
		})
	}
}
