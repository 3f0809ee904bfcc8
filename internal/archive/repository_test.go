package archive

import (
	"context"
	"testing"
	"time"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := Open(ctx, DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// idempotent
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema again: %v", err)
	}
	return repo
}

func result(id string, finished time.Time) *domain.GameResult {
	started := finished.Add(-42 * time.Minute)
	return &domain.GameResult{
		GameID:      id,
		Code:        "ABC234",
		Mode:        "individual",
		WinnerColor: "green",
		Players: []domain.ResultPlayer{
			{PlayerID: "p1", Name: "Ana", Color: "red"},
			{PlayerID: "p2", Name: "Ben", Color: "green", Winner: true},
		},
		Rounds:     31,
		Turns:      77,
		Events:     160,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}
}

func TestSaveAndGetResult(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	finished := time.UnixMilli(1714563000123).UTC()
	in := result("g1", finished)
	if err := repo.SaveResult(ctx, in); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, err := repo.GetResult(ctx, "g1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.WinnerColor != "green" || got.Turns != 77 || got.Events != 160 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !got.FinishedAt.Equal(finished) || got.Duration != 42*time.Minute {
		t.Fatalf("times: finished=%v duration=%v", got.FinishedAt, got.Duration)
	}
	if len(got.Players) != 2 || !got.Players[1].Winner {
		t.Fatalf("players: %+v", got.Players)
	}
}

func TestSaveResult_Upserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	in := result("g1", time.Now().UTC())
	if err := repo.SaveResult(ctx, in); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	in.Turns = 80
	if err := repo.SaveResult(ctx, in); err != nil {
		t.Fatalf("SaveResult again: %v", err)
	}
	list, err := repo.RecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(list) != 1 || list[0].Turns != 80 {
		t.Fatalf("upsert did not replace the row: %+v", list)
	}
}

func TestRecentResults_NewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := repo.SaveResult(ctx, result(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveResult %s: %v", id, err)
		}
	}
	list, err := repo.RecentResults(ctx, 2)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(list) != 2 || list[0].GameID != "new" || list[1].GameID != "mid" {
		t.Fatalf("order: %v", ids(list))
	}
}

func TestGetResult_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetResult(context.Background(), "missing"); !apperr.Is(err, apperr.CodeResultNotFound) {
		t.Fatalf("expected result_not_found, got %v", err)
	}
}

func TestOpen_Validation(t *testing.T) {
	if _, err := Open(context.Background(), DriverSQLite, " "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func ids(list []*domain.GameResult) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.GameID)
	}
	return out
}
