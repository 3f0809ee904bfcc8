package madndto

// Actions accepted by POST /api/game.
const (
	ActionCreate     = "create"
	ActionJoin       = "join"
	ActionStart      = "start"
	ActionRoll       = "roll"
	ActionMove       = "move"
	ActionChat       = "chat"
	ActionLegalMoves = "legal_moves"
	ActionFind       = "find"
	ActionLobby      = "lobby"
)

// GameRequest is the body of POST /api/game. Which fields are required
// depends on Action.
type GameRequest struct {
	Action string `json:"action"`

	GameID     string `json:"gameId,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	TeamColor  string `json:"teamColor,omitempty"`

	// create
	Mode     string `json:"mode,omitempty"`
	Capacity int    `json:"capacity,omitempty"`

	// move
	FigureID string    `json:"figureId,omitempty"`
	From     *Position `json:"from,omitempty"`
	To       *Position `json:"to,omitempty"`

	// chat
	Text  string `json:"text,omitempty"`
	Scope string `json:"scope,omitempty"`

	// find / lobby
	Code  string `json:"code,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// PollRequest mirrors the query of GET /api/poll.
type PollRequest struct {
	GameID   string
	Since    string
	PlayerID string
}
