package storage

import (
	"context"
	"path/filepath"
	"testing"

	"marketstream/internal/domain"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return s
}

func testRow(symbol string, bucketStart int64) *domain.CandleRow {
	return &domain.CandleRow{
		Symbol:      symbol,
		Timeframe:   "1m",
		BucketStart: bucketStart,
		Open:        100,
		High:        105,
		Low:         95,
		Close:       101,
		Volume:      2,
	}
}

func TestInsertAndListCandles(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	buckets := []int64{1_700_000_100, 1_700_000_160, 1_700_000_220}
	for _, b := range buckets {
		if err := s.InsertCandle(ctx, testRow("BTCUSDT", b)); err != nil {
			t.Fatalf("InsertCandle: %v", err)
		}
	}

	rows, err := s.ListCandles(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListCandles: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	// Newest bucket first.
	for i := range rows {
		want := buckets[len(buckets)-1-i]
		if rows[i].BucketStart != want {
			t.Errorf("row %d bucket = %d, want %d", i, rows[i].BucketStart, want)
		}
	}

	if rows[0].Open != 100 || rows[0].High != 105 || rows[0].Low != 95 || rows[0].Close != 101 || rows[0].Volume != 2 {
		t.Errorf("row fields = %+v", rows[0])
	}
}

func TestListCandlesSymbolFilter(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	for i, symbol := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT"} {
		if err := s.InsertCandle(ctx, testRow(symbol, 1_700_000_100+int64(i)*60)); err != nil {
			t.Fatalf("InsertCandle: %v", err)
		}
	}

	rows, err := s.ListCandles(ctx, "ETHUSDT", 10)
	if err != nil {
		t.Fatalf("ListCandles: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Symbol != "ETHUSDT" {
		t.Errorf("row symbol = %q", rows[0].Symbol)
	}
}

func TestListCandlesLimit(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.InsertCandle(ctx, testRow("BTCUSDT", 1_700_000_100+int64(i)*60)); err != nil {
			t.Fatalf("InsertCandle: %v", err)
		}
	}

	rows, err := s.ListCandles(ctx, "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("ListCandles: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].BucketStart != 1_700_000_340 {
		t.Errorf("first row bucket = %d, want newest", rows[0].BucketStart)
	}
}
