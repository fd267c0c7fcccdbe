package ledger

import (
	"github.com/rs/zerolog"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

// Engine executes ledger operations against a Position Store. The store is
// injected so tests can run against the in-memory implementation.
//
// The engine holds no state of its own and performs no locking: each
// operation is an independent read-then-write unit of work. Concurrent
// writers against the same wallet bucket are last-write-wins; a
// multi-writer deployment needs optimistic concurrency on top.
type Engine struct {
	store store.PositionStore
	log   zerolog.Logger
}

func NewEngine(st store.PositionStore, log zerolog.Logger) *Engine {
	return &Engine{store: st, log: log}
}
