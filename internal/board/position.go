package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/madn-server/internal/apperr"
)

// Color identifies one of the four figure sets.
type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

// Colors lists the colors in seating order.
var Colors = [4]Color{Red, Blue, Green, Yellow}

const (
	TrackLen    = 40
	Slots       = 4
	FigureCount = len(Colors) * Slots
)

// Index returns the seating index of c, or -1 for an unknown color.
func (c Color) Index() int {
	for i, cc := range Colors {
		if cc == c {
			return i
		}
	}
	return -1
}

func (c Color) Valid() bool { return c.Index() >= 0 }

// ParseColor normalizes and validates a color name.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperr.New(apperr.CodeInvalidColor, "unknown color %q", s)
	}
	return c, nil
}

// FigureID names a single figure. The zero value marks an empty cell.
type FigureID struct {
	Color Color
	Num   int
}

// Figure builds the id of figure n of color c.
func Figure(c Color, n int) FigureID { return FigureID{Color: c, Num: n} }

func (f FigureID) IsZero() bool { return f.Color == "" }

func (f FigureID) String() string {
	if f.IsZero() {
		return ""
	}
	return string(f.Color) + "_" + strconv.Itoa(f.Num)
}

func (f FigureID) Valid() bool {
	return f.Color.Valid() && f.Num >= 0 && f.Num < Slots
}

// ParseFigureID parses the "red_0" wire form.
func ParseFigureID(s string) (FigureID, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, '_')
	if i <= 0 {
		return FigureID{}, apperr.New(apperr.CodeInvalidFigure, "malformed figure id %q", s)
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return FigureID{}, apperr.New(apperr.CodeInvalidFigure, "malformed figure id %q", s)
	}
	f := FigureID{Color: Color(strings.ToLower(s[:i])), Num: n}
	if !f.Valid() {
		return FigureID{}, apperr.New(apperr.CodeInvalidFigure, "unknown figure %q", s)
	}
	return f, nil
}

func (f FigureID) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *FigureID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = FigureID{}
		return nil
	}
	v, err := ParseFigureID(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Zone is the board area a position lives in.
type Zone string

const (
	ZoneStart Zone = "start"
	ZoneTrack Zone = "track"
	ZoneHome  Zone = "home"
)

// Position addresses one board cell. Color is required for start and home
// cells and must be empty on the shared track.
type Position struct {
	Zone  Zone  `json:"zone"`
	Color Color `json:"color,omitempty"`
	Index int   `json:"index"`
}

func Start(c Color, slot int) Position { return Position{Zone: ZoneStart, Color: c, Index: slot} }
func Track(i int) Position { return Position{Zone: ZoneTrack, Index: i} }
func Home(c Color, slot int) Position { return Position{Zone: ZoneHome, Color: c, Index: slot} }

// Validate checks the position against the fixed board shape.
func (p Position) Validate() error {
	switch p.Zone {
	case ZoneTrack:
		if p.Color != "" {
			return apperr.New(apperr.CodeInvalidPosition, "track position carries color %q", p.Color)
		}
		if p.Index < 0 || p.Index >= TrackLen {
			return apperr.New(apperr.CodeInvalidPosition, "track index %d out of range", p.Index)
		}
	case ZoneStart, ZoneHome:
		if !p.Color.Valid() {
			return apperr.New(apperr.CodeInvalidPosition, "%s position needs a color", p.Zone)
		}
		if p.Index < 0 || p.Index >= Slots {
			return apperr.New(apperr.CodeInvalidPosition, "%s index %d out of range", p.Zone, p.Index)
		}
	default:
		return apperr.New(apperr.CodeInvalidPosition, "unknown zone %q", p.Zone)
	}
	return nil
}

func (p Position) String() string {
	if p.Zone == ZoneTrack {
		return fmt.Sprintf("track:%d", p.Index)
	}
	return fmt.Sprintf("%s:%s:%d", p.Zone, p.Color, p.Index)
}

// ParsePosition parses the "track:12" / "home:red:2" text form used by tools.
func ParsePosition(s string) (Position, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ":")
	var p Position
	switch {
	case len(parts) == 2 && parts[0] == string(ZoneTrack):
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return Position{}, apperr.New(apperr.CodeInvalidPosition, "malformed position %q", s)
		}
		p = Track(n)
	case len(parts) == 3 && (parts[0] == string(ZoneStart) || parts[0] == string(ZoneHome)):
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return Position{}, apperr.New(apperr.CodeInvalidPosition, "malformed position %q", s)
		}
		p = Position{Zone: Zone(parts[0]), Color: Color(parts[1]), Index: n}
	default:
		return Position{}, apperr.New(apperr.CodeInvalidPosition, "malformed position %q", s)
	}
	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}
