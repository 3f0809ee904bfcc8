package madndto

import "time"

type GameResponse struct {
	Game *Game `json:"game"`
}

// JoinResponse is the only response that carries the session token.
type JoinResponse struct {
	Game   *Game   `json:"game"`
	Player *Player `json:"player"`
	Token  string  `json:"token"`
}

type RollResponse struct {
	Dice       int    `json:"dice"`
	Forfeited  bool   `json:"forfeited"`
	LegalMoves []Move `json:"legalMoves"`
	Game       *Game  `json:"game"`
}

type MoveResponse struct {
	Captured string `json:"captured,omitempty"`
	Won      bool   `json:"won"`
	Game     *Game  `json:"game"`
}

type ChatResponse struct {
	Message *Message `json:"message"`
}

type LegalMovesResponse struct {
	Moves []Move `json:"moves"`
}

type LobbyResponse struct {
	Games []*Game `json:"games"`
}

// PollResponse answers GET /api/poll. NextPollIntervalHint is in
// milliseconds.
type PollResponse struct {
	Events               []Event   `json:"events"`
	Messages             []Message `json:"messages"`
	Players              []Player  `json:"players"`
	GameInfo             GameInfo  `json:"gameInfo"`
	Cursor               string    `json:"cursor"`
	Truncated            bool      `json:"truncated"`
	NextPollIntervalHint int64     `json:"nextPollIntervalHint"`
}

// Hint returns the server's suggested next poll interval.
func (p *PollResponse) Hint() time.Duration {
	return time.Duration(p.NextPollIntervalHint) * time.Millisecond
}

type PingResponse struct {
	ServerTime time.Time `json:"serverTime"`
}

type ResultsResponse struct {
	Results []Result `json:"results"`
}
