package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raykavin/stratfuse/pkg/core"
)

// Entry is the row model of the key value table
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName keeps the table name independent of the model name
func (Entry) TableName() string { return "kv_entries" }

// SQL implements core.Store on a SQL database via GORM
type SQL struct {
	db *gorm.DB
}

// FromSQL opens a database with the given dialector and migrates the entries table
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQL, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQL{
		db: db,
	}, nil
}

// FromSQLite opens or creates a SQLite database file
func FromSQLite(path string, opts ...gorm.Option) (*SQL, error) {
	return FromSQL(sqlite.Open(path), opts...)
}

// Get returns the value stored under key
func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	result := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, result.Error)
	}
	return entry.Value, nil
}

// Put inserts or replaces the value stored under key
func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("failed to store %q: %w", key, result.Error)
	}
	return nil
}

// Keys returns the keys starting with prefix in ascending order
func (s *SQL) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	result := s.db.WithContext(ctx).Model(&Entry{}).
		Where("entry_key LIKE ?", prefix+"%").
		Order("entry_key").
		Pluck("entry_key", &keys)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list keys: %w", result.Error)
	}
	return keys, nil
}

// Close closes the database connection
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
