package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
)

// memGame is one game's slot. Its mutex is the per-game write queue.
type memGame struct {
	mu       sync.RWMutex
	game     *domain.Game
	events   []eventlog.Event
	messages []eventlog.ChatMessage
	seen     map[string]time.Time
}

// Memory is a single-process store. Mutations run against a clone and are
// swapped in only when the mutation succeeds.
type Memory struct {
	mu    sync.RWMutex
	games map[string]*memGame
	codes map[string]string // code -> game id
	opts  Options
}

func NewMemory(opts Options) *Memory {
	return &Memory{
		games: make(map[string]*memGame),
		codes: make(map[string]string),
		opts:  opts.withDefaults(),
	}
}

func (m *Memory) slot(id string) (*memGame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.games[id]
	return s, ok
}

func (m *Memory) Create(ctx context.Context, g *domain.Game, fn MutateFunc) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.opts.Now()
	cp := g.Clone()
	batch := eventlog.NewBatch(cp.ID, &cp.Clock, now)
	if fn != nil {
		if err := fn(cp, batch); err != nil {
			return nil, err
		}
	}
	commit(cp, now)

	code := strings.ToUpper(cp.Code)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.codes[code]; taken {
		return nil, ErrCodeTaken
	}
	if _, exists := m.games[cp.ID]; exists {
		return nil, ErrCodeTaken
	}
	m.games[cp.ID] = &memGame{
		game:     cp,
		events:   eventlog.Window(nil, batch.Events(), m.opts.EventRetention),
		messages: eventlog.Window(nil, batch.Messages(), m.opts.ChatRetention),
		seen:     make(map[string]time.Time),
	}
	m.codes[code] = cp.ID
	return &Result{Game: cp.Clone(), Events: batch.Events(), Messages: batch.Messages()}, nil
}

func (m *Memory) Load(ctx context.Context, id string) (*domain.Game, error) {
	s, ok := m.slot(id)
	if !ok {
		return nil, notFound(id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Clone(), nil
}

func (m *Memory) FindByCode(ctx context.Context, code string) (*domain.Game, error) {
	m.mu.RLock()
	id, ok := m.codes[strings.ToUpper(strings.TrimSpace(code))]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(code)
	}
	return m.Load(ctx, id)
}

func (m *Memory) Mutate(ctx context.Context, id string, fn MutateFunc) (*Result, error) {
	s, ok := m.slot(id)
	if !ok {
		return nil, notFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.opts.Now()
	cp := s.game.Clone()
	batch := eventlog.NewBatch(cp.ID, &cp.Clock, now)
	if err := fn(cp, batch); err != nil {
		return nil, err
	}
	commit(cp, now)
	s.game = cp
	s.events = eventlog.Window(s.events, batch.Events(), m.opts.EventRetention)
	s.messages = eventlog.Window(s.messages, batch.Messages(), m.opts.ChatRetention)
	return &Result{Game: cp.Clone(), Events: batch.Events(), Messages: batch.Messages()}, nil
}

func (m *Memory) Read(ctx context.Context, id string) (*Snapshot, error) {
	s, ok := m.slot(id)
	if !ok {
		return nil, notFound(id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]time.Time, len(s.seen))
	for k, v := range s.seen {
		seen[k] = v
	}
	return &Snapshot{
		Game:     s.game.Clone(),
		Events:   append([]eventlog.Event(nil), s.events...),
		Messages: append([]eventlog.ChatMessage(nil), s.messages...),
		Seen:     seen,
	}, nil
}

func (m *Memory) Touch(ctx context.Context, gameID, playerID string, at time.Time) error {
	s, ok := m.slot(gameID)
	if !ok {
		return notFound(gameID)
	}
	s.mu.Lock()
	s.seen[playerID] = at
	s.mu.Unlock()
	return nil
}

// ListOpen returns joinable games, newest first.
func (m *Memory) ListOpen(ctx context.Context, limit int) ([]*domain.Game, error) {
	m.mu.RLock()
	slots := make([]*memGame, 0, len(m.games))
	for _, s := range m.games {
		slots = append(slots, s)
	}
	m.mu.RUnlock()

	var out []*domain.Game
	for _, s := range slots {
		s.mu.RLock()
		if isOpen(s.game) {
			out = append(out, s.game.Clone())
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
