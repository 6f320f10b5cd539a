package journal

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SQLiteSink writes entries through gorm.
type SQLiteSink struct {
	db *gorm.DB
}

var (
	_ Sink   = (*SQLiteSink)(nil)
	_ Reader = (*SQLiteSink)(nil)
)

// NewSQLiteSink migrates the journal table and returns a sink over db.
func NewSQLiteSink(db *gorm.DB) (*SQLiteSink, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write inserts entries in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := append([]Entry(nil), entries...)
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, len(rows)).Error; err != nil {
		return fmt.Errorf("insert status events: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for streamID, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, streamID string, limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("at desc, id desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query status events: %w", err)
	}
	return out, nil
}

// Close closes the database handle.
func (s *SQLiteSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
