// Package eventlog defines the per-game append-only records and their
// (timestamp, sequence) ordering keys.
package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key orders records within one game. Seq strictly increases; At never goes
// backwards, so comparing by Seq alone is sufficient.
type Key struct {
	At  int64  `json:"at"`
	Seq uint64 `json:"seq"`
}

func (k Key) IsZero() bool { return k.Seq == 0 && k.At == 0 }

// After reports whether k sorts strictly after o.
func (k Key) After(o Key) bool {
	if k.Seq != o.Seq {
		return k.Seq > o.Seq
	}
	return k.At > o.At
}

// Clock is the per-game key sequencer plus running totals, stored alongside
// the game so that key assignment commits atomically with the mutation.
type Clock struct {
	Last     Key    `json:"last"`
	Events   uint64 `json:"events"`
	Messages uint64 `json:"messages"`
}

// Next assigns the key following c.Last.
func (c *Clock) Next(now time.Time) Key {
	at := now.UnixMilli()
	if at < c.Last.At {
		at = c.Last.At
	}
	c.Last = Key{At: at, Seq: c.Last.Seq + 1}
	return c.Last
}

type Type string

const (
	GameCreated  Type = "game_created"
	PlayerJoined Type = "player_joined"
	GameStarted  Type = "game_started"
	DiceRolled   Type = "dice_rolled"
	FigureMoved  Type = "figure_moved"
	GameFinished Type = "game_finished"
)

type Event struct {
	ID        string          `json:"id"`
	GameID    string          `json:"gameId"`
	Type      Type            `json:"type"`
	PlayerID  string          `json:"playerId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Key       Key             `json:"key"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (e Event) LogKey() Key { return e.Key }

type Scope string

const (
	ScopePublic Scope = "public"
	ScopeTeam   Scope = "team"
)

type ChatMessage struct {
	ID         string    `json:"id"`
	GameID     string    `json:"gameId"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Text       string    `json:"text"`
	Scope      Scope     `json:"scope"`
	TeamID     string    `json:"teamId,omitempty"`
	Key        Key       `json:"key"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m ChatMessage) LogKey() Key { return m.Key }

// Batch collects the records produced by one game mutation. Keys are drawn
// from the game's clock, so a discarded batch is discarded together with the
// clock advance.
type Batch struct {
	gameID   string
	clock    *Clock
	now      time.Time
	events   []Event
	messages []ChatMessage
}

func NewBatch(gameID string, clock *Clock, now time.Time) *Batch {
	return &Batch{gameID: gameID, clock: clock, now: now}
}

// Emit appends an event with a JSON-encoded payload.
func (b *Batch) Emit(typ Type, playerID string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		raw = data
	}
	b.events = append(b.events, Event{
		ID:        uuid.NewString(),
		GameID:    b.gameID,
		Type:      typ,
		PlayerID:  playerID,
		Payload:   raw,
		Key:       b.clock.Next(b.now),
		CreatedAt: b.now,
	})
	b.clock.Events++
	return nil
}

// Post appends a chat message, filling in id, game and key.
func (b *Batch) Post(m ChatMessage) ChatMessage {
	m.ID = uuid.NewString()
	m.GameID = b.gameID
	m.Key = b.clock.Next(b.now)
	m.CreatedAt = b.now
	b.messages = append(b.messages, m)
	b.clock.Messages++
	return m
}

func (b *Batch) Events() []Event { return b.events }
func (b *Batch) Messages() []ChatMessage { return b.messages }
func (b *Batch) Empty() bool { return len(b.events) == 0 && len(b.messages) == 0 }
