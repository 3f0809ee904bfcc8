package board

import (
	"encoding/json"
	"testing"

	"github.com/park285/madn-server/internal/apperr"
)

func TestNew_AllFiguresInStart(t *testing.T) {
	b := New()
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, c := range Colors {
		for n := 0; n < Slots; n++ {
			p, ok := b.Locate(Figure(c, n))
			if !ok || p != Start(c, n) {
				t.Fatalf("figure %s_%d at %v ok=%v", c, n, p, ok)
			}
		}
	}
}

func TestPlace_TrackCaptureReturnsDisplaced(t *testing.T) {
	b := New()
	red, blue := Figure(Red, 0), Figure(Blue, 0)
	if _, err := b.Clear(Start(Red, 0)); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if d, err := b.Place(Track(5), red); err != nil || !d.IsZero() {
		t.Fatalf("Place red: d=%v err=%v", d, err)
	}
	if _, err := b.Clear(Start(Blue, 0)); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	d, err := b.Place(Track(5), blue)
	if err != nil {
		t.Fatalf("Place blue: %v", err)
	}
	if d != red {
		t.Fatalf("displaced = %v, want %v", d, red)
	}
	if occ, _ := b.Occupant(Track(5)); occ != blue {
		t.Fatalf("occupant = %v", occ)
	}
	// red is off-board until re-placed
	if err := b.Validate(); err == nil {
		t.Fatalf("expected invariant error with a figure off-board")
	}
	if _, err := b.Place(Start(Red, 0), red); err != nil {
		t.Fatalf("re-place: %v", err)
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestPlace_StartAndHomeNeverDisplace(t *testing.T) {
	b := New()
	_, err := b.Place(Start(Red, 0), Figure(Red, 1))
	if apperr.KindOf(err) != apperr.KindInvariant {
		t.Fatalf("occupied start: err=%v", err)
	}
	_, err = b.Place(Home(Blue, 0), Figure(Red, 1))
	if apperr.KindOf(err) != apperr.KindInvariant {
		t.Fatalf("foreign home: err=%v", err)
	}
}

func TestPosition_Validate(t *testing.T) {
	cases := []struct {
		p  Position
		ok bool
	}{
		{Track(0), true},
		{Track(39), true},
		{Track(40), false},
		{Track(-1), false},
		{Position{Zone: ZoneTrack, Color: Red, Index: 3}, false},
		{Home(Red, 3), true},
		{Home(Red, 4), false},
		{Start("purple", 0), false},
		{Position{Zone: "field", Index: 1}, false},
	}
	for _, tc := range cases {
		err := tc.p.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%v: err=%v want ok=%v", tc.p, err, tc.ok)
		}
		if err != nil && apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("%v: kind=%s", tc.p, apperr.KindOf(err))
		}
	}
}

func TestParsePosition(t *testing.T) {
	p, err := ParsePosition("home:green:2")
	if err != nil || p != Home(Green, 2) {
		t.Fatalf("home: %v %v", p, err)
	}
	p, err = ParsePosition("track:12")
	if err != nil || p != Track(12) {
		t.Fatalf("track: %v %v", p, err)
	}
	if _, err := ParsePosition("field_12"); err == nil {
		t.Fatalf("expected error for legacy form")
	}
}

func TestFigureID_JSON(t *testing.T) {
	b := New()
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Board
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != b {
		t.Fatalf("board changed across JSON")
	}
	if _, err := ParseFigureID("red_4"); err == nil {
		t.Fatalf("expected out-of-range figure error")
	}
}
