package madndto

import "time"

// Position addresses one board cell. Color is empty on the shared track.
type Position struct {
	Zone  string `json:"zone"`
	Color string `json:"color,omitempty"`
	Index int    `json:"index"`
}

type Move struct {
	FigureID string   `json:"figureId"`
	From     Position `json:"from"`
	To       Position `json:"to"`
}

// Board lists figure ids per cell; empty cells are "".
type Board struct {
	Start map[string][]string `json:"start"`
	Track []string            `json:"track"`
	Home  map[string][]string `json:"home"`
}

type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	TeamID       string    `json:"teamId,omitempty"`
	TeamPosition int       `json:"teamPosition"`
	Seat         int       `json:"seat"`
	Status       string    `json:"status,omitempty"`
	LastSeen     time.Time `json:"lastSeen,omitzero"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type Team struct {
	ID       string   `json:"id"`
	Color    string   `json:"color"`
	Position int      `json:"position"`
	Members  []string `json:"members"`
	MaxSize  int      `json:"maxSize"`
	Active   bool     `json:"active"`
}

// Game is the public view of a game document. Session tokens are never
// included.
type Game struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Mode          string    `json:"mode"`
	Capacity      int       `json:"capacity"`
	State         string    `json:"state"`
	Winner        string    `json:"winner,omitempty"`
	Players       []Player  `json:"players"`
	Teams         []Team    `json:"teams,omitempty"`
	CurrentPlayer string    `json:"currentPlayer,omitempty"`
	CurrentColor  string    `json:"currentColor,omitempty"`
	PendingDice   int       `json:"pendingDice,omitempty"`
	LastDice      int       `json:"lastDice,omitempty"`
	Round         int       `json:"round"`
	TurnNumber    int       `json:"turnNumber"`
	Board         Board     `json:"board"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	StartedAt     time.Time `json:"startedAt,omitzero"`
	FinishedAt    time.Time `json:"finishedAt,omitzero"`
}

// GameInfo is the slice of game state every poll carries.
type GameInfo struct {
	State         string `json:"state"`
	Mode          string `json:"mode"`
	CurrentTurn   string `json:"currentTurn,omitempty"`
	CurrentColor  string `json:"currentColor,omitempty"`
	Winner        string `json:"winner,omitempty"`
	PendingDice   int    `json:"pendingDice,omitempty"`
	LastDice      int    `json:"lastDice,omitempty"`
	Round         int    `json:"round"`
	TurnNumber    int    `json:"turnNumber"`
	Board         Board  `json:"board"`
	Version       int64  `json:"version"`
}

type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Text       string    `json:"text"`
	Scope      string    `json:"scope"`
	TeamID     string    `json:"teamId,omitempty"`
	Seq        uint64    `json:"seq"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ResultPlayer struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Winner   bool   `json:"winner"`
}

type Result struct {
	GameID     string         `json:"gameId"`
	Code       string         `json:"code"`
	Mode       string         `json:"mode"`
	Winner     string         `json:"winner"`
	Players    []ResultPlayer `json:"players"`
	Rounds     int            `json:"rounds"`
	Turns      int            `json:"turns"`
	Events     uint64         `json:"events"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	DurationMs int64          `json:"durationMs"`
}
