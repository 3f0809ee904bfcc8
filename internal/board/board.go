// Package board holds the fixed-shape cell model of the race board.
package board

import (
	"github.com/park285/madn-server/internal/apperr"
)

// Board is a value type; copying it copies every cell.
type Board struct {
	Start [len(Colors)][Slots]FigureID `json:"start"`
	Track [TrackLen]FigureID           `json:"track"`
	Home  [len(Colors)][Slots]FigureID `json:"home"`
}

// Placement pairs a figure with the cell it occupies.
type Placement struct {
	Figure   FigureID `json:"figure"`
	Position Position `json:"position"`
}

// New returns a board with every figure in its own start slot.
func New() Board {
	var b Board
	for ci, c := range Colors {
		for n := 0; n < Slots; n++ {
			b.Start[ci][n] = Figure(c, n)
		}
	}
	return b
}

func (b *Board) cell(p Position) (*FigureID, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Zone {
	case ZoneStart:
		return &b.Start[p.Color.Index()][p.Index], nil
	case ZoneHome:
		return &b.Home[p.Color.Index()][p.Index], nil
	default:
		return &b.Track[p.Index], nil
	}
}

// Occupant returns the figure at p, if any.
func (b *Board) Occupant(p Position) (FigureID, bool) {
	c, err := b.cell(p)
	if err != nil || c.IsZero() {
		return FigureID{}, false
	}
	return *c, true
}

// Place puts fig on p. An occupied track cell hands back the displaced
// figure, which is no longer on the board until the caller places it again.
// Start and home cells never displace.
func (b *Board) Place(p Position, fig FigureID) (FigureID, error) {
	c, err := b.cell(p)
	if err != nil {
		return FigureID{}, err
	}
	if !fig.Valid() {
		return FigureID{}, apperr.Invariant("place of invalid figure %v", fig)
	}
	if p.Zone != ZoneTrack && p.Color != fig.Color {
		return FigureID{}, apperr.Invariant("figure %s placed in %s", fig, p)
	}
	displaced := *c
	if !displaced.IsZero() && p.Zone != ZoneTrack {
		return FigureID{}, apperr.Invariant("cell %s already holds %s", p, displaced)
	}
	if displaced == fig {
		return FigureID{}, apperr.Invariant("figure %s already at %s", fig, p)
	}
	*c = fig
	return displaced, nil
}

// Clear empties p and returns the figure it held.
func (b *Board) Clear(p Position) (FigureID, error) {
	c, err := b.cell(p)
	if err != nil {
		return FigureID{}, err
	}
	if c.IsZero() {
		return FigureID{}, apperr.Invariant("clear of empty cell %s", p)
	}
	fig := *c
	*c = FigureID{}
	return fig, nil
}

// Locate finds the cell holding fig.
func (b *Board) Locate(fig FigureID) (Position, bool) {
	ci := fig.Color.Index()
	if ci < 0 {
		return Position{}, false
	}
	for i := 0; i < Slots; i++ {
		if b.Start[ci][i] == fig {
			return Start(fig.Color, i), true
		}
		if b.Home[ci][i] == fig {
			return Home(fig.Color, i), true
		}
	}
	for i := 0; i < TrackLen; i++ {
		if b.Track[i] == fig {
			return Track(i), true
		}
	}
	return Position{}, false
}

// FiguresOf lists the placements of every figure of color c, by figure number.
func (b *Board) FiguresOf(c Color) []Placement {
	out := make([]Placement, 0, Slots)
	for n := 0; n < Slots; n++ {
		fig := Figure(c, n)
		if p, ok := b.Locate(fig); ok {
			out = append(out, Placement{Figure: fig, Position: p})
		}
	}
	return out
}

// Validate checks that all sixteen figures sit in exactly one cell each and
// that start and home cells only hold figures of their own color.
func (b *Board) Validate() error {
	seen := make(map[FigureID]Position, FigureCount)
	mark := func(p Position, fig FigureID) error {
		if fig.IsZero() {
			return nil
		}
		if !fig.Valid() {
			return apperr.Invariant("invalid figure %v at %s", fig, p)
		}
		if p.Zone != ZoneTrack && fig.Color != p.Color {
			return apperr.Invariant("figure %s in foreign cell %s", fig, p)
		}
		if prev, dup := seen[fig]; dup {
			return apperr.Invariant("figure %s at both %s and %s", fig, prev, p)
		}
		seen[fig] = p
		return nil
	}
	for ci, c := range Colors {
		for i := 0; i < Slots; i++ {
			if err := mark(Start(c, i), b.Start[ci][i]); err != nil {
				return err
			}
			if err := mark(Home(c, i), b.Home[ci][i]); err != nil {
				return err
			}
		}
	}
	for i := 0; i < TrackLen; i++ {
		if err := mark(Track(i), b.Track[i]); err != nil {
			return err
		}
	}
	if len(seen) != FigureCount {
		return apperr.Invariant("board holds %d figures, want %d", len(seen), FigureCount)
	}
	return nil
}
