package eventlog

import (
	"testing"
	"time"

	"github.com/park285/madn-server/internal/apperr"
)

func TestClock_StrictlyIncreasing(t *testing.T) {
	var c Clock
	now := time.UnixMilli(10_000)
	a := c.Next(now)
	// wall clock going backwards must not reorder keys
	b := c.Next(now.Add(-time.Second))
	d := c.Next(now.Add(time.Second))
	if !b.After(a) || !d.After(b) {
		t.Fatalf("keys not increasing: %v %v %v", a, b, d)
	}
	if b.At != a.At {
		t.Fatalf("timestamp went backwards: %d -> %d", a.At, b.At)
	}
}

func TestBatch_SharesSequenceAcrossKinds(t *testing.T) {
	var c Clock
	b := NewBatch("g1", &c, time.Now())
	if err := b.Emit(GameCreated, "", map[string]string{"code": "ABCDEF"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	m := b.Post(ChatMessage{PlayerID: "p1", Text: "hi", Scope: ScopePublic})
	if err := b.Emit(PlayerJoined, "p1", nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	ev := b.Events()
	if len(ev) != 2 || len(b.Messages()) != 1 {
		t.Fatalf("unexpected batch sizes")
	}
	if !m.Key.After(ev[0].Key) || !ev[1].Key.After(m.Key) {
		t.Fatalf("keys out of order: %v %v %v", ev[0].Key, m.Key, ev[1].Key)
	}
	if c.Events != 2 || c.Messages != 1 {
		t.Fatalf("clock totals = %+v", c)
	}
}

func TestAfter_MonotoneSubsets(t *testing.T) {
	var c Clock
	b := NewBatch("g1", &c, time.Now())
	for i := 0; i < 5; i++ {
		if err := b.Emit(DiceRolled, "p", map[string]int{"value": i + 1}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	all := b.Events()
	t1 := all[1].Key
	t2 := all[3].Key
	r1 := After(all, t1)
	r2 := After(all, t2)
	if len(r1) != 3 || len(r2) != 1 {
		t.Fatalf("len r1=%d r2=%d", len(r1), len(r2))
	}
	for _, e := range r2 {
		found := false
		for _, f := range r1 {
			if f.ID == e.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("event %s missing from earlier poll", e.ID)
		}
	}
	last := r1[len(r1)-1].Key
	if got := After(all, last); len(got) != 0 {
		t.Fatalf("re-poll with cursor repeated %d events", len(got))
	}
}

func TestWindow_PrunesAndFlagsTruncation(t *testing.T) {
	var c Clock
	b := NewBatch("g1", &c, time.Now())
	for i := 0; i < 6; i++ {
		_ = b.Emit(DiceRolled, "p", nil)
	}
	all := b.Events()
	kept := Window(nil, all, 4)
	if len(kept) != 4 || kept[0].ID != all[2].ID {
		t.Fatalf("unexpected window: %d", len(kept))
	}
	if !Truncated(kept, c.Events, all[0].Key) {
		t.Fatalf("cursor before pruned records should be truncated")
	}
	if Truncated(kept, c.Events, all[2].Key) {
		t.Fatalf("cursor inside window flagged truncated")
	}
	if Truncated(kept, c.Events, Key{}) {
		t.Fatalf("first poll flagged truncated")
	}
}

func TestTailAndNewerThan(t *testing.T) {
	var c Clock
	base := time.UnixMilli(1_000_000)
	var msgs []ChatMessage
	for i := 0; i < 12; i++ {
		b := NewBatch("g1", &c, base.Add(time.Duration(i)*time.Minute))
		msgs = append(msgs, b.Post(ChatMessage{Text: "m", Scope: ScopePublic}))
	}
	if got := Tail(msgs, 10); len(got) != 10 || got[0].ID != msgs[2].ID {
		t.Fatalf("Tail returned %d", len(got))
	}
	recent := NewerThan(msgs, base.Add(7*time.Minute))
	if len(recent) != 5 {
		t.Fatalf("NewerThan returned %d, want 5", len(recent))
	}
}

func TestCursor_RoundTripAndRejects(t *testing.T) {
	k := Key{At: 1234, Seq: 42}
	got, err := DecodeCursor(EncodeCursor(k))
	if err != nil || got != k {
		t.Fatalf("round trip: %v %v", got, err)
	}
	if got, err := DecodeCursor(""); err != nil || !got.IsZero() {
		t.Fatalf("empty cursor: %v %v", got, err)
	}
	if _, err := DecodeCursor("!!not-base64"); !apperr.Is(err, apperr.CodeInvalidCursor) {
		t.Fatalf("expected invalid_cursor, got %v", err)
	}
}
