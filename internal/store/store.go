// Package store persists live game documents together with their event and
// chat logs. Every implementation serializes mutations per game id.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
)

// ErrCodeTaken is returned by Create when the share code is already in use.
var ErrCodeTaken = errors.New("game code already in use")

// MutateFunc changes g in place and records what happened on b. Returning an
// error discards both. It may run more than once under contention and must
// not have side effects outside g and b.
type MutateFunc func(g *domain.Game, b *eventlog.Batch) error

// Result is the committed outcome of a mutation.
type Result struct {
	Game     *domain.Game
	Events   []eventlog.Event
	Messages []eventlog.ChatMessage
}

// Snapshot is a consistent read of one game: the document, its retained logs
// and the per-player heartbeat times.
type Snapshot struct {
	Game     *domain.Game
	Events   []eventlog.Event
	Messages []eventlog.ChatMessage
	Seen     map[string]time.Time
}

type Store interface {
	Create(ctx context.Context, g *domain.Game, fn MutateFunc) (*Result, error)
	Load(ctx context.Context, id string) (*domain.Game, error)
	FindByCode(ctx context.Context, code string) (*domain.Game, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Result, error)
	Read(ctx context.Context, id string) (*Snapshot, error)
	Touch(ctx context.Context, gameID, playerID string, at time.Time) error
	ListOpen(ctx context.Context, limit int) ([]*domain.Game, error)
	Close() error
}

// Options bounds what a store retains per game.
type Options struct {
	EventRetention int
	ChatRetention  int
	TTL            time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.EventRetention <= 0 {
		o.EventRetention = 200
	}
	if o.ChatRetention <= 0 {
		o.ChatRetention = 100
	}
	if o.TTL <= 0 {
		o.TTL = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func notFound(id string) error {
	return apperr.New(apperr.CodeGameNotFound, "game %s not found", id)
}

// commit stamps a mutated document before it is written back.
func commit(g *domain.Game, now time.Time) {
	g.Version++
	g.UpdatedAt = now
}

func isOpen(g *domain.Game) bool {
	return g.State == domain.StateWaiting || g.State == domain.StateReady
}
