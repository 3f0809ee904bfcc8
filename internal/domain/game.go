package domain

import (
	"sort"
	"time"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/turn"
)

// State is the game lifecycle state.
type State string

const (
	StateWaiting  State = "waiting"
	StateReady    State = "ready"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// Player is a seated human. Color is the player's own color in individual
// mode and the team color in team mode.
type Player struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Color        board.Color `json:"color"`
	TeamID       string      `json:"team_id,omitempty"`
	TeamPosition int         `json:"team_position"`
	Seat         int         `json:"seat"`
	Token        string      `json:"token"`
	JoinedAt     time.Time   `json:"joined_at"`
}

// Team is one color's virtual player. Position is the rotation slot assigned
// at start; teams without members stay inactive with Position -1.
type Team struct {
	ID       string      `json:"id"`
	Color    board.Color `json:"color"`
	Position int         `json:"position"`
	Members  []string    `json:"members"`
	MaxSize  int         `json:"max_size"`
	Active   bool        `json:"active"`
}

// Game is the persisted document of one match. It is only mutated inside a
// store transaction.
type Game struct {
	ID          string         `json:"id"`
	Code        string         `json:"code"`
	Mode        turn.Mode      `json:"mode"`
	Capacity    int            `json:"capacity"`
	State       State          `json:"state"`
	Winner      board.Color    `json:"winner,omitempty"`
	Players     []Player       `json:"players"`
	Teams       []Team         `json:"teams,omitempty"`
	Board       board.Board    `json:"board"`
	Turn        turn.State     `json:"turn"`
	PendingDice int            `json:"pending_dice,omitempty"`
	LastDice    int            `json:"last_dice,omitempty"`
	Clock       eventlog.Clock `json:"clock"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	StartedAt   time.Time      `json:"started_at,omitzero"`
	FinishedAt  time.Time      `json:"finished_at,omitzero"`
	Version     int64          `json:"version"`
}

// Clone returns a deep copy safe to mutate independently.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Players = append([]Player(nil), g.Players...)
	if g.Teams != nil {
		cp.Teams = make([]Team, len(g.Teams))
		for i, t := range g.Teams {
			t.Members = append([]string(nil), t.Members...)
			cp.Teams[i] = t
		}
	}
	return &cp
}

func (g *Game) Player(id string) (*Player, bool) {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i], true
		}
	}
	return nil, false
}

func (g *Game) TeamByColor(c board.Color) (*Team, bool) {
	for i := range g.Teams {
		if g.Teams[i].Color == c {
			return &g.Teams[i], true
		}
	}
	return nil, false
}

func (g *Game) TeamByID(id string) (*Team, bool) {
	for i := range g.Teams {
		if g.Teams[i].ID == id {
			return &g.Teams[i], true
		}
	}
	return nil, false
}

// ActiveTeams returns the teams taking part in rotation, by position.
func (g *Game) ActiveTeams() []*Team {
	var out []*Team
	for i := range g.Teams {
		if g.Teams[i].Active {
			out = append(out, &g.Teams[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Seats is the number of participants the rotation runs over.
func (g *Game) Seats() int {
	if g.Mode == turn.ModeTeam {
		return len(g.ActiveTeams())
	}
	return len(g.Players)
}

// CurrentColor is the color whose figures move this turn.
func (g *Game) CurrentColor() (board.Color, error) {
	if g.Mode == turn.ModeTeam {
		t, err := g.currentTeam()
		if err != nil {
			return "", err
		}
		return t.Color, nil
	}
	if g.Turn.Current < 0 || g.Turn.Current >= len(g.Players) {
		return "", apperr.Invariant("turn index %d outside %d seats", g.Turn.Current, len(g.Players))
	}
	return g.Players[g.Turn.Current].Color, nil
}

// CurrentPlayerID is the human expected to act this turn.
func (g *Game) CurrentPlayerID() (string, error) {
	if g.Mode == turn.ModeTeam {
		t, err := g.currentTeam()
		if err != nil {
			return "", err
		}
		return g.Turn.ActingMember(t.Members)
	}
	if g.Turn.Current < 0 || g.Turn.Current >= len(g.Players) {
		return "", apperr.Invariant("turn index %d outside %d seats", g.Turn.Current, len(g.Players))
	}
	return g.Players[g.Turn.Current].ID, nil
}

func (g *Game) currentTeam() (*Team, error) {
	for _, t := range g.ActiveTeams() {
		if t.Position == g.Turn.Current {
			return t, nil
		}
	}
	return nil, apperr.Invariant("no active team at rotation position %d", g.Turn.Current)
}

// Finished reports whether the game reached its terminal state.
func (g *Game) Finished() bool { return g.State == StateFinished }
