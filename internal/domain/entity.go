package domain

import (
	"time"
)

// CandleRow is one closed OHLC bucket persisted for historical queries.
type CandleRow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"index" json:"symbol"`
	Timeframe   string    `gorm:"index" json:"timeframe"`
	BucketStart int64     `gorm:"index" json:"bucket_start"` // unix seconds
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	CreatedAt   time.Time `json:"created_at"`
}
