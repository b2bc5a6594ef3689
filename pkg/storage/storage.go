// Package storage implements core.Store on BuntDB, Redis and SQL databases
package storage

import (
	"context"

	"github.com/raykavin/stratfuse/pkg/core"
)

// KV is a store that can list its keys and be closed
type KV interface {
	core.Store
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

var (
	_ KV = (*Bunt)(nil)
	_ KV = (*SQL)(nil)
	_ KV = (*Redis)(nil)
)
