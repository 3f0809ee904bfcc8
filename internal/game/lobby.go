package game

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/store"
	"github.com/park285/madn-server/internal/turn"
)

const (
	codeAttempts = 5
	maxRefLength = 64
)

// CreateGame opens a new waiting game. capacity counts players in individual
// mode and teams in team mode; zero means four.
func (e *Engine) CreateGame(ctx context.Context, mode turn.Mode, capacity int) (*domain.Game, error) {
	return e.createGame(ctx, "", mode, capacity)
}

// createGame stores a new game under id, or under a fresh uuid when id is
// empty. A fixed id that already exists yields the existing game.
func (e *Engine) createGame(ctx context.Context, id string, mode turn.Mode, capacity int) (*domain.Game, error) {
	if mode == "" {
		mode = turn.ModeIndividual
	}
	if !mode.Valid() {
		return nil, apperr.New(apperr.CodeInvalidMode, "unknown mode %q", mode)
	}
	if capacity == 0 {
		capacity = len(board.Colors)
	}
	if capacity < turn.MinParticipants || capacity > len(board.Colors) {
		return nil, apperr.New(apperr.CodeInvalidCapacity, "capacity %d outside %d..%d", capacity, turn.MinParticipants, len(board.Colors))
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := e.newCode()
		if err != nil {
			return nil, err
		}
		now := e.now()
		gameID := id
		if gameID == "" {
			gameID = newID()
		}
		g := &domain.Game{
			ID:        gameID,
			Code:      code,
			Mode:      mode,
			Capacity:  capacity,
			State:     domain.StateWaiting,
			Players:   []domain.Player{},
			Board:     board.New(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if mode == turn.ModeTeam {
			for _, c := range board.Colors[:capacity] {
				g.Teams = append(g.Teams, domain.Team{
					ID:       newID(),
					Color:    c,
					Position: -1,
					Members:  []string{},
					MaxSize:  e.cfg.TeamSize,
				})
			}
		}
		res, err := e.store.Create(ctx, g, func(g *domain.Game, b *eventlog.Batch) error {
			return b.Emit(eventlog.GameCreated, "", map[string]any{
				"code":     g.Code,
				"mode":     g.Mode,
				"capacity": g.Capacity,
			})
		})
		if errors.Is(err, store.ErrCodeTaken) {
			if id != "" {
				// lost a create race for the same ref
				if existing, lerr := e.store.Load(ctx, id); lerr == nil {
					return existing, nil
				}
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		obslog.L().Info("game_create",
			obslog.Game(res.Game.ID),
			zap.String("code", res.Game.Code),
			zap.String("mode", string(mode)),
			zap.Int("capacity", capacity),
		)
		return res.Game, nil
	}
	return nil, apperr.New(apperr.CodeStorage, "could not allocate a game code after %d attempts", codeAttempts)
}

// JoinRequest names a game by id or share code. TeamColor selects the team
// in team mode; if empty the team with the fewest members is used.
type JoinRequest struct {
	GameRef   string
	Name      string
	TeamColor string
}

// Join seats a player, dispatching on the game's mode. An unknown game is
// created on the fly under the requested ref when auto-create is enabled, so
// later joins with the same ref land in the same game.
func (e *Engine) Join(ctx context.Context, req JoinRequest) (*domain.Game, *domain.Player, error) {
	g, err := e.Resolve(ctx, req.GameRef)
	if apperr.Is(err, apperr.CodeGameNotFound) && e.cfg.AutoCreateOnJoin {
		ref := strings.TrimSpace(req.GameRef)
		if len(ref) > maxRefLength {
			return nil, nil, apperr.New(apperr.CodeInvalidRequest, "game ref longer than %d characters", maxRefLength)
		}
		mode := turn.ModeIndividual
		if strings.TrimSpace(req.TeamColor) != "" {
			mode = turn.ModeTeam
		}
		g, err = e.createGame(ctx, ref, mode, 0)
	}
	if err != nil {
		return nil, nil, err
	}
	if g.Mode == turn.ModeTeam {
		return e.AddPlayerToTeam(ctx, g.ID, req.Name, req.TeamColor)
	}
	if strings.TrimSpace(req.TeamColor) != "" {
		return nil, nil, apperr.New(apperr.CodeWrongMode, "game %s is not a team game", g.ID)
	}
	return e.AddPlayer(ctx, g.ID, req.Name)
}

func joinable(g *domain.Game) error {
	switch g.State {
	case domain.StateWaiting, domain.StateReady:
		return nil
	default:
		return apperr.New(apperr.CodeAlreadyStarted, "game %s is %s", g.ID, g.State)
	}
}

// AddPlayer seats a player in an individual game with the first unused color.
func (e *Engine) AddPlayer(ctx context.Context, gameID, name string) (*domain.Game, *domain.Player, error) {
	name, err := e.cleanName(name)
	if err != nil {
		return nil, nil, err
	}
	var joined domain.Player
	res, err := e.mutate(ctx, "add_player", gameID, func(g *domain.Game, b *eventlog.Batch) error {
		if g.Mode != turn.ModeIndividual {
			return apperr.New(apperr.CodeWrongMode, "game %s is a team game", g.ID)
		}
		if err := joinable(g); err != nil {
			return err
		}
		if len(g.Players) >= g.Capacity {
			return apperr.New(apperr.CodeGameFull, "game %s has %d/%d players", g.ID, len(g.Players), g.Capacity)
		}
		color, ok := firstFreeColor(g)
		if !ok {
			return apperr.New(apperr.CodeGameFull, "no color left in game %s", g.ID)
		}
		joined = domain.Player{
			ID:       newID(),
			Name:     name,
			Color:    color,
			Seat:     len(g.Players),
			Token:    newID(),
			JoinedAt: e.now(),
		}
		g.Players = append(g.Players, joined)
		if len(g.Players) >= turn.MinParticipants {
			g.State = domain.StateReady
		}
		return b.Emit(eventlog.PlayerJoined, joined.ID, map[string]any{
			"playerId": joined.ID,
			"name":     joined.Name,
			"color":    joined.Color,
			"seat":     joined.Seat,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	obslog.L().Info("game_player_join", obslog.Game(gameID), obslog.Player(joined.ID), zap.String("color", string(joined.Color)))
	return res.Game, &joined, nil
}

func firstFreeColor(g *domain.Game) (board.Color, bool) {
	used := make(map[board.Color]bool, len(g.Players))
	for _, p := range g.Players {
		used[p.Color] = true
	}
	for _, c := range board.Colors {
		if !used[c] {
			return c, true
		}
	}
	return "", false
}

// AddPlayerToTeam seats a player in the team of the given color at the first
// unused team position.
func (e *Engine) AddPlayerToTeam(ctx context.Context, gameID, name, color string) (*domain.Game, *domain.Player, error) {
	name, err := e.cleanName(name)
	if err != nil {
		return nil, nil, err
	}
	var want board.Color
	if strings.TrimSpace(color) != "" {
		if want, err = board.ParseColor(color); err != nil {
			return nil, nil, err
		}
	}
	var joined domain.Player
	res, err := e.mutate(ctx, "add_player_to_team", gameID, func(g *domain.Game, b *eventlog.Batch) error {
		if g.Mode != turn.ModeTeam {
			return apperr.New(apperr.CodeWrongMode, "game %s is not a team game", g.ID)
		}
		if err := joinable(g); err != nil {
			return err
		}
		team, err := pickTeam(g, want)
		if err != nil {
			return err
		}
		joined = domain.Player{
			ID:           newID(),
			Name:         name,
			Color:        team.Color,
			TeamID:       team.ID,
			TeamPosition: len(team.Members),
			Seat:         len(g.Players),
			Token:        newID(),
			JoinedAt:     e.now(),
		}
		team.Members = append(team.Members, joined.ID)
		g.Players = append(g.Players, joined)
		if teamsWithMembers(g) >= turn.MinParticipants && len(g.Players) >= turn.MinParticipants {
			g.State = domain.StateReady
		}
		return b.Emit(eventlog.PlayerJoined, joined.ID, map[string]any{
			"playerId":     joined.ID,
			"name":         joined.Name,
			"color":        joined.Color,
			"teamId":       joined.TeamID,
			"teamPosition": joined.TeamPosition,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	obslog.L().Info("game_player_join",
		obslog.Game(gameID),
		obslog.Player(joined.ID),
		zap.String("team_color", string(joined.Color)),
		zap.Int("team_position", joined.TeamPosition),
	)
	return res.Game, &joined, nil
}

func pickTeam(g *domain.Game, want board.Color) (*domain.Team, error) {
	if want != "" {
		t, ok := g.TeamByColor(want)
		if !ok {
			return nil, apperr.New(apperr.CodeTeamNotFound, "game %s has no %s team", g.ID, want)
		}
		if len(t.Members) >= t.MaxSize {
			return nil, apperr.New(apperr.CodeTeamFull, "%s team is full", want)
		}
		return t, nil
	}
	var best *domain.Team
	for i := range g.Teams {
		t := &g.Teams[i]
		if len(t.Members) >= t.MaxSize {
			continue
		}
		if best == nil || len(t.Members) < len(best.Members) {
			best = t
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, apperr.New(apperr.CodeGameFull, "every team in game %s is full", g.ID)
}

func teamsWithMembers(g *domain.Game) int {
	n := 0
	for _, t := range g.Teams {
		if len(t.Members) > 0 {
			n++
		}
	}
	return n
}

// Start moves a ready game into play. In team mode only teams with members
// join the rotation, in color order.
func (e *Engine) Start(ctx context.Context, gameID, playerID string) (*domain.Game, error) {
	res, err := e.mutate(ctx, "start", gameID, func(g *domain.Game, b *eventlog.Batch) error {
		switch g.State {
		case domain.StateReady:
		case domain.StateWaiting:
			return apperr.New(apperr.CodeNotReady, "game %s is still waiting for players", g.ID)
		default:
			return apperr.New(apperr.CodeAlreadyStarted, "game %s is %s", g.ID, g.State)
		}
		if playerID != "" {
			if _, ok := g.Player(playerID); !ok {
				return apperr.New(apperr.CodePlayerNotFound, "player %s not in game", playerID)
			}
		}
		if g.Mode == turn.ModeTeam {
			pos := 0
			for i := range g.Teams {
				t := &g.Teams[i]
				if len(t.Members) == 0 {
					t.Active, t.Position = false, -1
					continue
				}
				t.Active, t.Position = true, pos
				pos++
			}
		}
		ts, err := turn.Begin(g.Mode, g.Seats())
		if err != nil {
			return err
		}
		g.Turn = ts
		g.State = domain.StatePlaying
		g.StartedAt = e.now()
		g.PendingDice = 0
		current, err := g.CurrentPlayerID()
		if err != nil {
			return err
		}
		color, err := g.CurrentColor()
		if err != nil {
			return err
		}
		return b.Emit(eventlog.GameStarted, playerID, map[string]any{
			"mode":          g.Mode,
			"seats":         ts.Participants,
			"currentPlayer": current,
			"currentColor":  color,
		})
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("game_start", obslog.Game(gameID), zap.Int("seats", res.Game.Turn.Participants))
	return res.Game, nil
}
