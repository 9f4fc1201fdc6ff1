package catalog

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// MaxRecent caps the number of rows Recent returns.
const MaxRecent = 500

// Store persists capture history in sqlite.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at path and migrates it.
func Open(path string, log *logsink.Sink) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	log.Verbose("Catalog: running migrations on %s", path)
	if err := db.AutoMigrate(&Capture{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert stores c and fills in its ID.
func (s *Store) Insert(ctx context.Context, c *Capture) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// Recent returns up to limit captures, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Capture, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	var out []Capture
	err := s.db.WithContext(ctx).
		Order("taken_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Count returns the number of captures per outcome.
func (s *Store) Count(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		N       int64
	}
	err := s.db.WithContext(ctx).Model(&Capture{}).
		Select("outcome, count(*) as n").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.N
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
