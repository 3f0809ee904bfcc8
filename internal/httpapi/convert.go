package httpapi

import (
	"strings"

	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/rules"
	"github.com/park285/madn-server/internal/syncproto"
	"github.com/park285/madn-server/pkg/madndto"
)

func toDTOPosition(p board.Position) madndto.Position {
	return madndto.Position{Zone: string(p.Zone), Color: string(p.Color), Index: p.Index}
}

func fromDTOPosition(p *madndto.Position) board.Position {
	return board.Position{
		Zone:  board.Zone(strings.ToLower(p.Zone)),
		Color: board.Color(strings.ToLower(p.Color)),
		Index: p.Index,
	}
}

func toDTOBoard(b board.Board) madndto.Board {
	out := madndto.Board{
		Start: make(map[string][]string, len(board.Colors)),
		Track: make([]string, board.TrackLen),
		Home:  make(map[string][]string, len(board.Colors)),
	}
	for i, c := range board.Colors {
		start := make([]string, board.Slots)
		home := make([]string, board.Slots)
		for s := 0; s < board.Slots; s++ {
			start[s] = cellText(b.Start[i][s])
			home[s] = cellText(b.Home[i][s])
		}
		out.Start[string(c)] = start
		out.Home[string(c)] = home
	}
	for i, f := range b.Track {
		out.Track[i] = cellText(f)
	}
	return out
}

func cellText(f board.FigureID) string {
	if f.IsZero() {
		return ""
	}
	return f.String()
}

func toDTOMoves(moves []rules.Move) []madndto.Move {
	out := make([]madndto.Move, 0, len(moves))
	for _, m := range moves {
		out = append(out, madndto.Move{FigureID: m.Figure.String(), From: toDTOPosition(m.From), To: toDTOPosition(m.To)})
	}
	return out
}

func toDTOPlayer(p domain.Player) madndto.Player {
	return madndto.Player{
		ID:           p.ID,
		Name:         p.Name,
		Color:        string(p.Color),
		TeamID:       p.TeamID,
		TeamPosition: p.TeamPosition,
		Seat:         p.Seat,
		JoinedAt:     p.JoinedAt,
	}
}

func toDTOGame(g *domain.Game) *madndto.Game {
	if g == nil {
		return nil
	}
	out := &madndto.Game{
		ID:          g.ID,
		Code:        g.Code,
		Mode:        string(g.Mode),
		Capacity:    g.Capacity,
		State:       string(g.State),
		Winner:      string(g.Winner),
		Players:     make([]madndto.Player, 0, len(g.Players)),
		PendingDice: g.PendingDice,
		LastDice:    g.LastDice,
		Round:       g.Turn.Round,
		TurnNumber:  g.Turn.TurnNumber,
		Board:       toDTOBoard(g.Board),
		Version:     g.Version,
		CreatedAt:   g.CreatedAt,
		StartedAt:   g.StartedAt,
		FinishedAt:  g.FinishedAt,
	}
	for _, p := range g.Players {
		out.Players = append(out.Players, toDTOPlayer(p))
	}
	for _, t := range g.Teams {
		out.Teams = append(out.Teams, madndto.Team{
			ID:       t.ID,
			Color:    string(t.Color),
			Position: t.Position,
			Members:  append([]string(nil), t.Members...),
			MaxSize:  t.MaxSize,
			Active:   t.Active,
		})
	}
	if g.State == domain.StatePlaying {
		out.CurrentPlayer, _ = g.CurrentPlayerID()
		if c, err := g.CurrentColor(); err == nil {
			out.CurrentColor = string(c)
		}
	}
	return out
}

func toDTOEvent(e eventlog.Event) madndto.Event {
	out := madndto.Event{ID: e.ID, Type: string(e.Type), PlayerID: e.PlayerID, Seq: e.Key.Seq, CreatedAt: e.CreatedAt}
	if len(e.Payload) > 0 {
		out.Payload = e.Payload
	}
	return out
}

func toDTOMessage(m eventlog.ChatMessage) madndto.Message {
	return madndto.Message{
		ID:         m.ID,
		PlayerID:   m.PlayerID,
		PlayerName: m.PlayerName,
		Text:       m.Text,
		Scope:      string(m.Scope),
		TeamID:     m.TeamID,
		Seq:        m.Key.Seq,
		CreatedAt:  m.CreatedAt,
	}
}

func toDTOPoll(r *syncproto.Response) *madndto.PollResponse {
	out := &madndto.PollResponse{
		Events:               make([]madndto.Event, 0, len(r.Events)),
		Messages:             make([]madndto.Message, 0, len(r.Messages)),
		Players:              make([]madndto.Player, 0, len(r.Players)),
		Cursor:               r.Cursor,
		Truncated:            r.Truncated,
		NextPollIntervalHint: r.Hint.Milliseconds(),
		GameInfo: madndto.GameInfo{
			State:        string(r.Info.State),
			Mode:         string(r.Info.Mode),
			CurrentTurn:  r.Info.CurrentPlayer,
			CurrentColor: string(r.Info.CurrentColor),
			Winner:       string(r.Info.Winner),
			PendingDice:  r.Info.PendingDice,
			LastDice:     r.Info.LastDice,
			Round:        r.Info.Round,
			TurnNumber:   r.Info.TurnNumber,
			Board:        toDTOBoard(r.Info.Board),
			Version:      r.Info.Version,
		},
	}
	for _, e := range r.Events {
		out.Events = append(out.Events, toDTOEvent(e))
	}
	for _, m := range r.Messages {
		out.Messages = append(out.Messages, toDTOMessage(m))
	}
	for _, p := range r.Players {
		dp := toDTOPlayer(p.Player)
		dp.Status = string(p.Status)
		dp.LastSeen = p.LastSeen
		out.Players = append(out.Players, dp)
	}
	return out
}

func toDTOResult(r *domain.GameResult) madndto.Result {
	out := madndto.Result{
		GameID:     r.GameID,
		Code:       r.Code,
		Mode:       r.Mode,
		Winner:     r.WinnerColor,
		Players:    make([]madndto.ResultPlayer, 0, len(r.Players)),
		Rounds:     r.Rounds,
		Turns:      r.Turns,
		Events:     r.Events,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration.Milliseconds(),
	}
	for _, p := range r.Players {
		out.Players = append(out.Players, madndto.ResultPlayer{PlayerID: p.PlayerID, Name: p.Name, Color: p.Color, Winner: p.Winner})
	}
	return out
}
