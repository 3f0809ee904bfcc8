package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/madn-server/internal/pollclient"
	"github.com/park285/madn-server/pkg/madndto"
)

// madn-tail follows one game from the terminal.
func main() {
	baseURL := os.Getenv("MADN_BASE_URL")
	gameRef := strings.TrimSpace(os.Getenv("MADN_GAME"))
	playerID := strings.TrimSpace(os.Getenv("MADN_PLAYER_ID"))
	joinName := strings.TrimSpace(os.Getenv("MADN_JOIN_NAME"))

	if baseURL == "" {
		log.Fatal("MADN_BASE_URL is required")
	}
	if gameRef == "" {
		log.Fatal("MADN_GAME is required (game id or code)")
	}

	client := pollclient.NewHTTPClient(baseURL, pollclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ts, err := client.Ping(ctx)
	cancel()
	if err != nil {
		log.Fatalf("/api/ping error: %v", err)
	}
	log.Printf("/api/ping ok: server time %s (skew %s)", ts.Format(time.RFC3339), time.Since(ts).Round(time.Millisecond))

	gameID := gameRef
	if joinName != "" {
		var joined madndto.JoinResponse
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Action(ctx, madndto.GameRequest{Action: madndto.ActionJoin, GameID: gameRef, PlayerName: joinName}, &joined)
		cancel()
		if err != nil {
			log.Fatalf("join error: %v", err)
		}
		gameID, playerID = joined.Game.ID, joined.Player.ID
		log.Printf("joined %s (code %s) as %s color=%s", gameID, joined.Game.Code, playerID, joined.Player.Color)
	} else {
		// the server resolves ids and join codes alike
		var found madndto.GameResponse
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Action(ctx, madndto.GameRequest{Action: madndto.ActionFind, GameID: gameRef}, &found)
		cancel()
		if err != nil {
			log.Fatalf("find error: %v", err)
		}
		gameID = found.Game.ID
	}

	pc := pollclient.New(client, pollclient.Config{GameID: gameID, PlayerID: playerID}, pollclient.Handlers{
		OnUpdate: printUpdate,
		OnReconnect: func() {
			log.Println("reconnected")
		},
		OnFailed: func(err error) {
			log.Printf("giving up: %v", err)
		},
		OnState: func(from, to pollclient.State) {
			log.Printf("cadence %s -> %s", from, to)
		},
	})
	if err := pc.Start(context.Background()); err != nil {
		log.Fatalf("start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		pc.Stop()
	case <-pc.Done():
		if pc.State() == pollclient.StateFailed {
			os.Exit(1)
		}
	}
}

func printUpdate(r *madndto.PollResponse) {
	if r.Truncated {
		fmt.Println("-- history truncated; showing what the server still holds --")
	}
	for _, ev := range r.Events {
		payload := ""
		if ev.Payload != nil {
			if raw, err := json.Marshal(ev.Payload); err == nil {
				payload = string(raw)
			}
		}
		fmt.Printf("%s #%d %-16s %s %s\n", ev.CreatedAt.Format("15:04:05"), ev.Seq, ev.Type, ev.PlayerID, payload)
	}
	for _, m := range r.Messages {
		scope := ""
		if m.Scope == "team" {
			scope = "[team] "
		}
		fmt.Printf("%s %s<%s> %s\n", m.CreatedAt.Format("15:04:05"), scope, m.PlayerName, m.Text)
	}
	if len(r.Events) > 0 {
		info := r.GameInfo
		fmt.Printf("   state=%s round=%d turn=%s dice=%d\n", info.State, info.Round, info.CurrentTurn, info.LastDice)
	}
}
