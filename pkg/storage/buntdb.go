package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/raykavin/stratfuse/pkg/core"
)

// Bunt implements core.Store on top of BuntDB
type Bunt struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory store
func FromMemory() (*Bunt, error) {
	return NewBunt(":memory:")
}

// FromFile creates a file-based store
func FromFile(file string) (*Bunt, error) {
	return NewBunt(file)
}

// NewBunt opens a BuntDB database, ":memory:" keeps it in memory
func NewBunt(sourceFile string) (*Bunt, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	return &Bunt{
		db: db,
	}, nil
}

// Get returns the value stored under key
func (b *Bunt) Get(_ context.Context, key string) ([]byte, error) {
	var value string
	err := b.db.View(func(tx *buntdb.Tx) error {
		var err error
		value, err = tx.Get(key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return []byte(value), nil
}

// Put stores value under key
func (b *Bunt) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(key, string(value), nil); err != nil {
			return fmt.Errorf("failed to store %q: %w", key, err)
		}
		return nil
	})
}

// Keys returns the keys starting with prefix in ascending order
func (b *Bunt) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, _ string) bool {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Close flushes and closes the database
func (b *Bunt) Close() error {
	return b.db.Close()
}
