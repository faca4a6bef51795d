package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"marketstream/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists closed OHLC buckets for historical queries. The
// streaming core never blocks on it; writes arrive through the recorder.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at the given path.
func NewStorage(path string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.CandleRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// InsertCandle stores one closed bucket.
func (s *Storage) InsertCandle(ctx context.Context, row *domain.CandleRow) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// ListCandles returns the most recent rows, newest first. An empty symbol
// matches every symbol.
func (s *Storage) ListCandles(ctx context.Context, symbol string, limit int) ([]domain.CandleRow, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.db.WithContext(ctx).Order("bucket_start desc").Limit(limit)
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var rows []domain.CandleRow
	err := query.Find(&rows).Error
	return rows, err
}
