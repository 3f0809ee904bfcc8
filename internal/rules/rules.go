// Package rules computes legal destinations, captures and the win condition.
package rules

import (
	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
)

// EntryCell is the track cell a color's figures enter on when leaving start.
func EntryCell(c board.Color) int {
	return c.Index() * (board.TrackLen / len(board.Colors))
}

// HomeEntrance is the last track cell before a color turns into its home lane.
func HomeEntrance(c board.Color) int {
	return (EntryCell(c) + board.TrackLen - 1) % board.TrackLen
}

// LegalDestination returns where the figure at from lands for the given dice,
// or false if the move is not allowed. Occupancy is not considered here.
func LegalDestination(c board.Color, from board.Position, dice int) (board.Position, bool) {
	if dice < 1 || dice > 6 || !c.Valid() {
		return board.Position{}, false
	}
	switch from.Zone {
	case board.ZoneStart:
		if dice != 6 {
			return board.Position{}, false
		}
		return board.Track(EntryCell(c)), true
	case board.ZoneTrack:
		// progress along the color's own lap; 0 is the entry cell
		rel := (from.Index - EntryCell(c) + board.TrackLen) % board.TrackLen
		next := rel + dice
		if next < board.TrackLen {
			return board.Track((EntryCell(c) + next) % board.TrackLen), true
		}
		slot := next - board.TrackLen
		if slot >= board.Slots {
			return board.Position{}, false
		}
		return board.Home(c, slot), true
	case board.ZoneHome:
		slot := from.Index + dice
		if slot >= board.Slots {
			return board.Position{}, false
		}
		return board.Home(c, slot), true
	}
	return board.Position{}, false
}

// Blocked reports whether to is occupied by a figure that cannot be captured
// by color c: any friendly figure, or anything in a start/home cell.
func Blocked(b *board.Board, c board.Color, to board.Position) bool {
	occ, ok := b.Occupant(to)
	if !ok {
		return false
	}
	return occ.Color == c || to.Zone != board.ZoneTrack
}

// WinCondition is true once all four home cells of c are occupied.
func WinCondition(b *board.Board, c board.Color) bool {
	ci := c.Index()
	if ci < 0 {
		return false
	}
	for _, f := range b.Home[ci] {
		if f.IsZero() {
			return false
		}
	}
	return true
}

// CaptureSlot returns the first free start slot of c, scanning ascending.
func CaptureSlot(b *board.Board, c board.Color) (board.Position, error) {
	ci := c.Index()
	if ci < 0 {
		return board.Position{}, apperr.Invariant("capture slot for unknown color %q", c)
	}
	for i, f := range b.Start[ci] {
		if f.IsZero() {
			return board.Start(c, i), nil
		}
	}
	return board.Position{}, apperr.Invariant("no free start slot for %s", c)
}

// Move is one legal figure move for a given dice value.
type Move struct {
	Figure board.FigureID `json:"figureId"`
	From   board.Position `json:"from"`
	To     board.Position `json:"to"`
}

// LegalMoves lists every unblocked move of color c for dice, in figure order.
func LegalMoves(b *board.Board, c board.Color, dice int) []Move {
	var out []Move
	for _, pl := range b.FiguresOf(c) {
		to, ok := LegalDestination(c, pl.Position, dice)
		if !ok || Blocked(b, c, to) {
			continue
		}
		out = append(out, Move{Figure: pl.Figure, From: pl.Position, To: to})
	}
	return out
}

// Apply performs a validated move on b: lifts the figure, places it on to and
// returns any captured opponent to its first free start slot. It returns the
// captured figure, if any.
func Apply(b *board.Board, m Move) (board.FigureID, error) {
	fig, err := b.Clear(m.From)
	if err != nil {
		return board.FigureID{}, err
	}
	if fig != m.Figure {
		return board.FigureID{}, apperr.Invariant("cell %s held %s, expected %s", m.From, fig, m.Figure)
	}
	captured, err := b.Place(m.To, fig)
	if err != nil {
		return board.FigureID{}, err
	}
	if captured.IsZero() {
		return captured, nil
	}
	if captured.Color == fig.Color {
		return board.FigureID{}, apperr.Invariant("friendly capture of %s by %s", captured, fig)
	}
	slot, err := CaptureSlot(b, captured.Color)
	if err != nil {
		return board.FigureID{}, err
	}
	if _, err := b.Place(slot, captured); err != nil {
		return board.FigureID{}, err
	}
	return captured, nil
}
