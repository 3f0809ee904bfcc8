package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/store"
	"github.com/park285/madn-server/internal/turn"
)

// scriptDice returns the queued values in order.
type scriptDice struct {
	mu   sync.Mutex
	vals []int
}

func (d *scriptDice) Roll() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.vals) == 0 {
		return 0, fmt.Errorf("script exhausted")
	}
	v := d.vals[0]
	d.vals = d.vals[1:]
	return v, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	results []*domain.GameResult
}

func (f *fakeArchive) SaveResult(ctx context.Context, r *domain.GameResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func newTestEngine(t *testing.T, dice ...int) (*Engine, store.Store, *scriptDice) {
	t.Helper()
	st := store.NewMemory(store.Options{})
	d := &scriptDice{vals: dice}
	return New(st, Config{TeamSize: 4}, WithDice(d)), st, d
}

func newRedisEngine(t *testing.T, dice ...int) (*Engine, *scriptDice) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	st, err := store.NewRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), store.Options{})
	if err != nil {
		t.Fatalf("store.NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	d := &scriptDice{vals: dice}
	return New(st, Config{}, WithDice(d)), d
}

func join(t *testing.T, e *Engine, gameID, name, team string) *domain.Player {
	t.Helper()
	_, p, err := e.Join(context.Background(), JoinRequest{GameRef: gameID, Name: name, TeamColor: team})
	if err != nil {
		t.Fatalf("Join %s: %v", name, err)
	}
	return p
}

func mustRoll(t *testing.T, e *Engine, gameID, playerID string) *RollOutcome {
	t.Helper()
	out, err := e.Roll(context.Background(), gameID, playerID)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	return out
}

func TestScenario_IndividualSixKeepsTurn(t *testing.T) {
	for name, mk := range map[string]func(t *testing.T) *Engine{
		"memory": func(t *testing.T) *Engine { e, _, _ := newTestEngine(t, 6, 3); return e },
		"redis":  func(t *testing.T) *Engine { e, _ := newRedisEngine(t, 6, 3); return e },
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mk(t)
			g, err := e.CreateGame(ctx, turn.ModeIndividual, 4)
			if err != nil {
				t.Fatalf("CreateGame: %v", err)
			}
			if len(g.Code) != 6 || g.State != domain.StateWaiting {
				t.Fatalf("unexpected new game: %+v", g)
			}
			a := join(t, e, g.ID, "A", "")
			b := join(t, e, g.Code, "B", "")
			c := join(t, e, g.ID, "C", "")
			if a.Color != board.Red || b.Color != board.Blue || c.Color != board.Green {
				t.Fatalf("colors: %s %s %s", a.Color, b.Color, c.Color)
			}
			if _, err := e.Start(ctx, g.ID, a.ID); err != nil {
				t.Fatalf("Start: %v", err)
			}

			r := mustRoll(t, e, g.ID, a.ID)
			if r.Dice != 6 || r.Forfeited {
				t.Fatalf("roll: %+v", r)
			}
			red0 := board.Figure(board.Red, 0)
			mv, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: red0, From: board.Start(board.Red, 0), To: board.Track(0)})
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			if cur, _ := mv.Game.CurrentPlayerID(); cur != a.ID {
				t.Fatalf("six should keep the turn, current=%s", cur)
			}

			r = mustRoll(t, e, g.ID, a.ID)
			if r.Dice != 3 || len(r.Moves) != 1 {
				t.Fatalf("second roll: %+v", r)
			}
			mv, err = e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: red0, From: board.Track(0), To: board.Track(3)})
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			if cur, _ := mv.Game.CurrentPlayerID(); cur != b.ID {
				t.Fatalf("turn should pass to B, current=%s", cur)
			}
			if occ, _ := mv.Game.Board.Occupant(board.Track(3)); occ != red0 {
				t.Fatalf("red_0 not on track 3")
			}
			if err := mv.Game.Board.Validate(); err != nil {
				t.Fatalf("board invariant: %v", err)
			}
		})
	}
}

func TestRejections(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, 2, 6)
	g, err := e.CreateGame(ctx, turn.ModeIndividual, 2)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	a := join(t, e, g.ID, "A", "")
	if _, err := e.Start(ctx, g.ID, ""); !apperr.Is(err, apperr.CodeNotReady) {
		t.Fatalf("start with one player: %v", err)
	}
	b := join(t, e, g.ID, "B", "")
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: g.ID, Name: "C"}); !apperr.Is(err, apperr.CodeGameFull) {
		t.Fatalf("join full game: %v", err)
	}
	if _, err := e.Roll(ctx, g.ID, a.ID); !apperr.Is(err, apperr.CodeNotPlaying) {
		t.Fatalf("roll before start: %v", err)
	}
	if _, err := e.Start(ctx, g.ID, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Start(ctx, g.ID, ""); !apperr.Is(err, apperr.CodeAlreadyStarted) {
		t.Fatalf("double start: %v", err)
	}
	if _, err := e.Roll(ctx, g.ID, b.ID); !apperr.Is(err, apperr.CodeNotYourTurn) {
		t.Fatalf("roll out of turn: %v", err)
	}
	if _, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: board.Figure(board.Red, 0), From: board.Start(board.Red, 0), To: board.Track(0)}); !apperr.Is(err, apperr.CodeNoDice) {
		t.Fatalf("move without dice: %v", err)
	}
	// a 2 with everyone in start is forfeited and passes the turn
	r := mustRoll(t, e, g.ID, a.ID)
	if !r.Forfeited {
		t.Fatalf("expected forfeited roll")
	}
	r = mustRoll(t, e, g.ID, b.ID)
	if r.Dice != 6 {
		t.Fatalf("dice = %d", r.Dice)
	}
	if _, err := e.Roll(ctx, g.ID, b.ID); !apperr.Is(err, apperr.CodeDicePending) {
		t.Fatalf("double roll: %v", err)
	}
	blue0 := board.Figure(board.Blue, 0)
	if _, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: b.ID, Figure: blue0, From: board.Start(board.Blue, 0), To: board.Track(11)}); !apperr.Is(err, apperr.CodeIllegalMove) {
		t.Fatalf("wrong destination: %v", err)
	}
	if _, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: b.ID, Figure: board.Figure(board.Red, 1), From: board.Start(board.Red, 1), To: board.Track(0)}); !apperr.Is(err, apperr.CodeFigureNotOwned) {
		t.Fatalf("foreign figure: %v", err)
	}
	if _, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: b.ID, Figure: blue0, From: board.Start(board.Blue, 1), To: board.Track(10)}); !apperr.Is(err, apperr.CodeFigureNotAtFrom) {
		t.Fatalf("wrong from: %v", err)
	}
	if _, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: b.ID, Figure: blue0, From: board.Start(board.Blue, 0), To: board.Track(10)}); err != nil {
		t.Fatalf("legal move rejected: %v", err)
	}
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: "missing", Name: "X"}); !apperr.Is(err, apperr.CodeGameNotFound) {
		t.Fatalf("join unknown: %v", err)
	}
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: g.ID, Name: "   "}); !apperr.Is(err, apperr.CodeInvalidName) {
		t.Fatalf("blank name: %v", err)
	}
}

func TestTeamRotation_AlternatesMembersByRound(t *testing.T) {
	ctx := context.Background()
	// every roll below is a forfeit: nobody can leave start without a six
	e, _, _ := newTestEngine(t, 1, 2, 3, 4, 5)
	g, err := e.CreateGame(ctx, turn.ModeTeam, 3)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if len(g.Teams) != 3 {
		t.Fatalf("teams = %d", len(g.Teams))
	}
	a1 := join(t, e, g.ID, "a1", "red")
	if g2, _ := e.Game(ctx, g.ID); g2.State != domain.StateWaiting {
		t.Fatalf("one team should not be ready")
	}
	a2 := join(t, e, g.ID, "a2", "red")
	b1 := join(t, e, g.ID, "b1", "green")
	if a2.TeamPosition != 1 || b1.TeamPosition != 0 {
		t.Fatalf("team positions: %d %d", a2.TeamPosition, b1.TeamPosition)
	}
	started, err := e.Start(ctx, g.ID, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Turn.Participants != 2 {
		t.Fatalf("empty blue team must be skipped, seats=%d", started.Turn.Participants)
	}
	if blue, _ := started.TeamByColor(board.Blue); blue.Active {
		t.Fatalf("blue team should be inactive")
	}

	want := []string{a1.ID, b1.ID, a2.ID, b1.ID, a1.ID}
	for i, pid := range want {
		r, err := e.Roll(ctx, g.ID, pid)
		if err != nil {
			t.Fatalf("step %d: roll by expected actor: %v", i, err)
		}
		if !r.Forfeited {
			t.Fatalf("step %d: expected forfeit", i)
		}
	}
	final, _ := e.Game(ctx, g.ID)
	if final.Turn.Round != 3 || final.Turn.TurnNumber != 6 {
		t.Fatalf("round=%d turn=%d", final.Turn.Round, final.Turn.TurnNumber)
	}
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: g.ID, Name: "late", TeamColor: "blue"}); !apperr.Is(err, apperr.CodeAlreadyStarted) {
		t.Fatalf("late join: %v", err)
	}
}

func TestTeamJoin_Limits(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(store.Options{})
	e := New(st, Config{TeamSize: 1})
	g, err := e.CreateGame(ctx, turn.ModeTeam, 2)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	join(t, e, g.ID, "a", "red")
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: g.ID, Name: "b", TeamColor: "red"}); !apperr.Is(err, apperr.CodeTeamFull) {
		t.Fatalf("full team: %v", err)
	}
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: g.ID, Name: "b", TeamColor: "yellow"}); !apperr.Is(err, apperr.CodeTeamNotFound) {
		t.Fatalf("missing team: %v", err)
	}
	// no color picks the team with the fewest members
	p := join(t, e, g.ID, "b", "")
	if p.Color != board.Blue {
		t.Fatalf("auto team = %s", p.Color)
	}
	if _, _, err := e.AddPlayer(ctx, g.ID, "c"); !apperr.Is(err, apperr.CodeWrongMode) {
		t.Fatalf("AddPlayer on team game: %v", err)
	}
}

func TestMove_CaptureAndWin(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t, 5, 4)
	arch := &fakeArchive{}
	e.AttachArchiver(arch)
	g, _ := e.CreateGame(ctx, turn.ModeIndividual, 2)
	a := join(t, e, g.ID, "A", "")
	join(t, e, g.ID, "B", "")
	if _, err := e.Start(ctx, g.ID, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// red has three figures home and red_0 on 34; blue_0 sits on 39
	_, err := st.Mutate(ctx, g.ID, func(g *domain.Game, _ *eventlog.Batch) error {
		bd := board.New()
		for n := 1; n < 4; n++ {
			_, _ = bd.Clear(board.Start(board.Red, n))
			_, _ = bd.Place(board.Home(board.Red, n-1), board.Figure(board.Red, n))
		}
		_, _ = bd.Clear(board.Start(board.Red, 0))
		_, _ = bd.Place(board.Track(34), board.Figure(board.Red, 0))
		_, _ = bd.Clear(board.Start(board.Blue, 0))
		_, _ = bd.Place(board.Track(39), board.Figure(board.Blue, 0))
		g.Board = bd
		return bd.Validate()
	})
	if err != nil {
		t.Fatalf("seed board: %v", err)
	}

	red0 := board.Figure(board.Red, 0)
	mustRoll(t, e, g.ID, a.ID)
	mv, err := e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: red0, From: board.Track(34), To: board.Track(39)})
	if err != nil {
		t.Fatalf("capture move: %v", err)
	}
	if mv.Captured != board.Figure(board.Blue, 0) {
		t.Fatalf("captured = %v", mv.Captured)
	}
	if p, _ := mv.Game.Board.Locate(board.Figure(board.Blue, 0)); p != board.Start(board.Blue, 0) {
		t.Fatalf("captured figure at %v", p)
	}
	// blue has nothing to do with a 4; push the turn back to red
	_, err = st.Mutate(ctx, g.ID, func(g *domain.Game, _ *eventlog.Batch) error {
		g.Turn.Current = 0
		return nil
	})
	if err != nil {
		t.Fatalf("reset turn: %v", err)
	}
	mustRoll(t, e, g.ID, a.ID)
	mv, err = e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: red0, From: board.Track(39), To: board.Home(board.Red, 3)})
	if err != nil {
		t.Fatalf("winning move: %v", err)
	}
	if !mv.Won || mv.Game.State != domain.StateFinished || mv.Game.Winner != board.Red {
		t.Fatalf("expected red win: %+v", mv.Game)
	}
	if _, err := e.Roll(ctx, g.ID, a.ID); !apperr.Is(err, apperr.CodeNotPlaying) {
		t.Fatalf("roll after finish: %v", err)
	}
	snap, err := st.Read(ctx, g.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	finished := 0
	for _, ev := range snap.Events {
		if ev.Type == eventlog.GameFinished {
			finished++
		}
	}
	if finished != 1 {
		t.Fatalf("game_finished emitted %d times", finished)
	}
	if len(arch.results) != 1 || arch.results[0].WinnerColor != "red" {
		t.Fatalf("archive = %+v", arch.results)
	}
}

func TestMove_BlockedByOwnFigure(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t, 3)
	g, _ := e.CreateGame(ctx, turn.ModeIndividual, 2)
	a := join(t, e, g.ID, "A", "")
	join(t, e, g.ID, "B", "")
	if _, err := e.Start(ctx, g.ID, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := st.Mutate(ctx, g.ID, func(g *domain.Game, _ *eventlog.Batch) error {
		_, _ = g.Board.Clear(board.Start(board.Red, 0))
		_, _ = g.Board.Place(board.Track(2), board.Figure(board.Red, 0))
		_, _ = g.Board.Clear(board.Start(board.Red, 1))
		_, _ = g.Board.Place(board.Track(5), board.Figure(board.Red, 1))
		return g.Board.Validate()
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := mustRoll(t, e, g.ID, a.ID)
	if len(r.Moves) != 1 || r.Moves[0].Figure != board.Figure(board.Red, 1) {
		t.Fatalf("legal moves = %+v", r.Moves)
	}
	_, err = e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: board.Figure(board.Red, 0), From: board.Track(2), To: board.Track(5)})
	if !apperr.Is(err, apperr.CodeBlocked) {
		t.Fatalf("expected destination_blocked, got %v", err)
	}
	moves, err := e.LegalMoves(ctx, g.ID)
	if err != nil || len(moves) != 1 {
		t.Fatalf("LegalMoves: %v %v", moves, err)
	}
}

func TestInvariantViolation_AbortsAndLogsDistinctly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := obslog.Replace(zap.New(core))
	defer restore()

	ctx := context.Background()
	e, st, _ := newTestEngine(t, 6)
	g, _ := e.CreateGame(ctx, turn.ModeIndividual, 2)
	a := join(t, e, g.ID, "A", "")
	join(t, e, g.ID, "B", "")
	if _, err := e.Start(ctx, g.ID, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// corrupt the board: red_1 duplicated onto the track
	_, err := st.Mutate(ctx, g.ID, func(g *domain.Game, _ *eventlog.Batch) error {
		g.Board.Track[20] = board.Figure(board.Red, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	mustRoll(t, e, g.ID, a.ID)
	before, _ := st.Read(ctx, g.ID)
	_, err = e.Move(ctx, MoveRequest{GameID: g.ID, PlayerID: a.ID, Figure: board.Figure(board.Red, 0), From: board.Start(board.Red, 0), To: board.Track(0)})
	if apperr.KindOf(err) != apperr.KindInvariant {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	after, _ := st.Read(ctx, g.ID)
	if after.Game.Version != before.Game.Version || len(after.Events) != len(before.Events) {
		t.Fatalf("aborted move left a partial write")
	}
	if logs.FilterMessage("game_invariant_violation").Len() != 1 {
		t.Fatalf("invariant violation not logged distinctly")
	}
}

func TestRoll_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, 6, 6, 6, 6, 6, 6, 6, 6)
	g, _ := e.CreateGame(ctx, turn.ModeIndividual, 2)
	a := join(t, e, g.ID, "A", "")
	join(t, e, g.ID, "B", "")
	if _, err := e.Start(ctx, g.ID, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Roll(ctx, g.ID, a.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okCount++
			} else if !apperr.Is(err, apperr.CodeDicePending) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if okCount != 1 {
		t.Fatalf("%d concurrent rolls succeeded", okCount)
	}
}

func TestCryptoDice_Uniform(t *testing.T) {
	const n = 6000
	var counts [7]int
	d := CryptoDice{}
	for i := 0; i < n; i++ {
		v, err := d.Roll()
		if err != nil {
			t.Fatalf("Roll: %v", err)
		}
		if v < 1 || v > 6 {
			t.Fatalf("out of range: %d", v)
		}
		counts[v]++
	}
	// chi-square with 5 degrees of freedom; 20.5 is p≈0.001
	exp := float64(n) / 6
	chi := 0.0
	for v := 1; v <= 6; v++ {
		d := float64(counts[v]) - exp
		chi += d * d / exp
	}
	if chi > 20.5 {
		t.Fatalf("dice not uniform: counts=%v chi2=%.2f", counts[1:], chi)
	}
}

func TestJoin_AutoCreate(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory(store.Options{}), Config{AutoCreateOnJoin: true}, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	g, p, err := e.Join(ctx, JoinRequest{GameRef: "NEWONE", Name: "A"})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if g.Mode != turn.ModeIndividual || p.Color != board.Red || len(g.Players) != 1 {
		t.Fatalf("auto-created game: %+v", g)
	}
	if _, _, err := e.Join(ctx, JoinRequest{GameRef: strings.Repeat("x", 65), Name: "A"}); !apperr.Is(err, apperr.CodeInvalidRequest) {
		t.Fatalf("oversized ref: %v", err)
	}
}

func TestJoin_AutoCreateSameRefSharesGame(t *testing.T) {
	for _, backend := range []string{"memory", "redis"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			var st store.Store = store.NewMemory(store.Options{})
			if backend == "redis" {
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				t.Cleanup(func() { mr.Close() })
				rs, err := store.NewRedis(ctx, fmt.Sprintf("redis://%s/0", mr.Addr()), store.Options{})
				if err != nil {
					t.Fatalf("store.NewRedis: %v", err)
				}
				t.Cleanup(func() { _ = rs.Close() })
				st = rs
			}
			e := New(st, Config{AutoCreateOnJoin: true})

			g1, a, err := e.Join(ctx, JoinRequest{GameRef: "room42", Name: "A"})
			if err != nil {
				t.Fatalf("first join: %v", err)
			}
			g2, b, err := e.Join(ctx, JoinRequest{GameRef: "room42", Name: "B"})
			if err != nil {
				t.Fatalf("second join: %v", err)
			}
			if g1.ID != "room42" || g2.ID != g1.ID {
				t.Fatalf("same ref created two games: %s / %s", g1.ID, g2.ID)
			}
			if len(g2.Players) != 2 || a.Color != board.Red || b.Color != board.Blue || g2.State != domain.StateReady {
				t.Fatalf("shared game: players=%d state=%s", len(g2.Players), g2.State)
			}
		})
	}
}

func TestJoin_AutoCreateConcurrentRef(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory(store.Options{}), Config{AutoCreateOnJoin: true})
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := e.Join(ctx, JoinRequest{GameRef: "lobby-7", Name: fmt.Sprintf("p%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	g, err := e.Game(ctx, "lobby-7")
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if len(g.Players) != 4 {
		t.Fatalf("players = %d, want all joins in one game", len(g.Players))
	}
}

func TestTeamJoin_DefaultBalancesTeams(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory(store.Options{}), Config{})
	g, err := e.CreateGame(ctx, turn.ModeTeam, 2)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	want := []board.Color{board.Red, board.Blue, board.Red, board.Blue}
	for i, name := range []string{"A", "B", "C", "D"} {
		if p := join(t, e, g.ID, name, ""); p.Color != want[i] {
			t.Fatalf("%s joined %s, want %s", name, p.Color, want[i])
		}
	}
	final, _ := e.Game(ctx, g.ID)
	if final.State != domain.StateReady {
		t.Fatalf("state after 4 joins = %s", final.State)
	}
}
