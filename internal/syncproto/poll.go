// Package syncproto answers "what changed since cursor T" for polling
// clients. It only reads from the store; the one write it performs is the
// viewer heartbeat, which lives outside the game document.
package syncproto

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/store"
	"github.com/park285/madn-server/internal/turn"
)

type Config struct {
	FirstPollWindow   time.Duration
	FirstPollMessages int
	HintActive        time.Duration
	HintIdle          time.Duration
	HintFinished      time.Duration
}

func (c Config) withDefaults() Config {
	if c.FirstPollWindow <= 0 {
		c.FirstPollWindow = 5 * time.Minute
	}
	if c.FirstPollMessages <= 0 {
		c.FirstPollMessages = 10
	}
	if c.HintActive <= 0 {
		c.HintActive = time.Second
	}
	if c.HintIdle <= 0 {
		c.HintIdle = 3 * time.Second
	}
	if c.HintFinished <= 0 {
		c.HintFinished = 10 * time.Second
	}
	return c
}

// Request is one poll. Since is the opaque cursor from the previous response;
// empty means first poll.
type Request struct {
	GameID   string
	Since    string
	PlayerID string
}

// PlayerView is a player with the presence derived from the last heartbeat.
type PlayerView struct {
	domain.Player
	Status   domain.PresenceStatus
	LastSeen time.Time
}

// GameInfo is the part of the game document every poll carries.
type GameInfo struct {
	State         domain.State
	Mode          turn.Mode
	CurrentPlayer string
	CurrentColor  board.Color
	Winner        board.Color
	PendingDice   int
	LastDice      int
	Round         int
	TurnNumber    int
	Board         board.Board
	Version       int64
}

type Response struct {
	Events    []eventlog.Event
	Messages  []eventlog.ChatMessage
	Players   []PlayerView
	Info      GameInfo
	Cursor    string
	Truncated bool
	Hint      time.Duration
}

// Empty reports whether the response carried no new records.
func (r *Response) Empty() bool { return len(r.Events) == 0 && len(r.Messages) == 0 }

type Service struct {
	store store.Store
	cfg   Config
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(st store.Store, cfg Config, opts ...Option) *Service {
	s := &Service{store: st, cfg: cfg.withDefaults(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Poll returns the records after req.Since together with the current game
// snapshot. Passing the returned cursor back never repeats a record.
func (s *Service) Poll(ctx context.Context, req Request) (*Response, error) {
	gameID := strings.TrimSpace(req.GameID)
	if gameID == "" {
		return nil, apperr.New(apperr.CodeMissingField, "gameId is required")
	}
	since, err := eventlog.DecodeCursor(req.Since)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.Read(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g := snap.Game
	now := s.now()
	if snap.Seen == nil {
		snap.Seen = make(map[string]time.Time)
	}

	var viewer *domain.Player
	if req.PlayerID != "" {
		p, ok := g.Player(req.PlayerID)
		if !ok {
			return nil, apperr.New(apperr.CodePlayerNotFound, "player %s not in game %s", req.PlayerID, gameID)
		}
		viewer = p
		if err := s.store.Touch(ctx, gameID, p.ID, now); err != nil {
			return nil, err
		}
		snap.Seen[p.ID] = now
	}

	resp := &Response{}
	var messages []eventlog.ChatMessage
	if since.IsZero() {
		resp.Events = eventlog.NewerThan(snap.Events, now.Add(-s.cfg.FirstPollWindow))
		messages = eventlog.Tail(visible(snap.Messages, viewer), s.cfg.FirstPollMessages)
	} else {
		resp.Events = eventlog.After(snap.Events, since)
		messages = visible(eventlog.After(snap.Messages, since), viewer)
		resp.Truncated = eventlog.Truncated(snap.Events, g.Clock.Events, since) ||
			eventlog.Truncated(snap.Messages, g.Clock.Messages, since)
	}
	resp.Messages = messages
	if resp.Events == nil {
		resp.Events = []eventlog.Event{}
	}
	if resp.Messages == nil {
		resp.Messages = []eventlog.ChatMessage{}
	}

	// the clock's last key covers every record in the snapshot, filtered or not
	cursor := g.Clock.Last
	if since.After(cursor) {
		cursor = since
	}
	resp.Cursor = eventlog.EncodeCursor(cursor)
	resp.Players = players(g, snap.Seen, now)
	resp.Info = info(g)
	resp.Hint = s.hint(g, resp)

	if resp.Truncated {
		obslog.L().Warn("sync_truncated", obslog.Game(gameID), zap.String("since", req.Since))
	}
	return resp, nil
}

func (s *Service) hint(g *domain.Game, r *Response) time.Duration {
	switch {
	case g.Finished():
		return s.cfg.HintFinished
	case !r.Empty():
		return s.cfg.HintActive
	default:
		return s.cfg.HintIdle
	}
}

// Ping returns the server time for clock-skew checks.
func (s *Service) Ping() time.Time { return s.now() }

// visible drops team-scoped messages of other teams. Without a viewer only
// public messages are returned.
func visible(msgs []eventlog.ChatMessage, viewer *domain.Player) []eventlog.ChatMessage {
	out := make([]eventlog.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Scope == eventlog.ScopeTeam && (viewer == nil || viewer.TeamID == "" || viewer.TeamID != m.TeamID) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func players(g *domain.Game, seen map[string]time.Time, now time.Time) []PlayerView {
	out := make([]PlayerView, 0, len(g.Players))
	for _, p := range g.Players {
		at := seen[p.ID]
		out = append(out, PlayerView{Player: p, Status: domain.Presence(at, now), LastSeen: at})
	}
	return out
}

func info(g *domain.Game) GameInfo {
	gi := GameInfo{
		State:       g.State,
		Mode:        g.Mode,
		Winner:      g.Winner,
		PendingDice: g.PendingDice,
		LastDice:    g.LastDice,
		Round:       g.Turn.Round,
		TurnNumber:  g.Turn.TurnNumber,
		Board:       g.Board,
		Version:     g.Version,
	}
	if g.State == domain.StatePlaying {
		// a broken turn state shows up as an empty current player; the
		// engine reports the violation on the next mutation
		gi.CurrentPlayer, _ = g.CurrentPlayerID()
		gi.CurrentColor, _ = g.CurrentColor()
	}
	return gi
}
