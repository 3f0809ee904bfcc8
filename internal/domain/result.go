package domain

import "time"

// GameResult is the archived summary of a finished game.
type GameResult struct {
	GameID      string
	Code        string
	Mode        string
	WinnerColor string
	Players     []ResultPlayer
	Rounds      int
	Turns       int
	Events      uint64
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
}

type ResultPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Winner   bool   `json:"winner"`
}

// ResultFromGame summarizes a finished game for archiving.
func ResultFromGame(g *Game) *GameResult {
	if g == nil {
		return nil
	}
	r := &GameResult{
		GameID:      g.ID,
		Code:        g.Code,
		Mode:        string(g.Mode),
		WinnerColor: string(g.Winner),
		Rounds:      g.Turn.Round,
		Turns:       g.Turn.TurnNumber,
		Events:      g.Clock.Events,
		StartedAt:   g.StartedAt,
		FinishedAt:  g.FinishedAt,
	}
	if !g.StartedAt.IsZero() && !g.FinishedAt.IsZero() {
		r.Duration = g.FinishedAt.Sub(g.StartedAt)
	}
	for _, p := range g.Players {
		r.Players = append(r.Players, ResultPlayer{
			PlayerID: p.ID,
			Name:     p.Name,
			Color:    string(p.Color),
			Winner:   g.Winner != "" && p.Color == g.Winner,
		})
	}
	return r
}
