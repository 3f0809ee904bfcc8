package game

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/rules"
	"github.com/park285/madn-server/internal/turn"
)

// RollOutcome reports a roll. Forfeited rolls had no legal move and were
// consumed immediately.
type RollOutcome struct {
	Game      *domain.Game
	Dice      int
	Forfeited bool
	Moves     []rules.Move
}

// MoveOutcome reports an applied move.
type MoveOutcome struct {
	Game     *domain.Game
	Captured board.FigureID
	Won      bool
}

// MoveRequest is a client's move claim; To must match the rule engine.
type MoveRequest struct {
	GameID   string
	PlayerID string
	Figure   board.FigureID
	From     board.Position
	To       board.Position
}

// requireTurn checks that g is in play and playerID is the acting human.
func requireTurn(g *domain.Game, playerID string) error {
	if g.State != domain.StatePlaying {
		return apperr.New(apperr.CodeNotPlaying, "game %s is %s", g.ID, g.State)
	}
	if _, ok := g.Player(playerID); !ok {
		return apperr.New(apperr.CodePlayerNotFound, "player %s not in game", playerID)
	}
	current, err := g.CurrentPlayerID()
	if err != nil {
		return err
	}
	if current != playerID {
		return apperr.New(apperr.CodeNotYourTurn, "player %s is not on turn", playerID)
	}
	return nil
}

// Roll draws the dice for the acting player. A roll without any legal move
// passes the turn right away (unless it is a six) so play can never stall.
func (e *Engine) Roll(ctx context.Context, gameID, playerID string) (*RollOutcome, error) {
	out := &RollOutcome{}
	res, err := e.mutate(ctx, "roll", gameID, func(g *domain.Game, b *eventlog.Batch) error {
		if err := requireTurn(g, playerID); err != nil {
			return err
		}
		if g.PendingDice != 0 {
			return apperr.New(apperr.CodeDicePending, "dice %d still pending", g.PendingDice)
		}
		dice, err := e.dice.Roll()
		if err != nil {
			return err
		}
		if dice < 1 || dice > 6 {
			return apperr.Invariant("dice source produced %d", dice)
		}
		color, err := g.CurrentColor()
		if err != nil {
			return err
		}
		moves := rules.LegalMoves(&g.Board, color, dice)
		out.Dice, out.Moves, out.Forfeited = dice, moves, len(moves) == 0
		g.LastDice = dice
		if out.Forfeited {
			g.Turn.Advance(dice)
		} else {
			g.PendingDice = dice
		}
		next, err := g.CurrentPlayerID()
		if err != nil {
			return err
		}
		return b.Emit(eventlog.DiceRolled, playerID, map[string]any{
			"value":      dice,
			"color":      color,
			"forfeited":  out.Forfeited,
			"legalMoves": len(moves),
			"nextPlayer": next,
		})
	})
	if err != nil {
		return nil, err
	}
	out.Game = res.Game
	obslog.L().Info("game_roll",
		obslog.Game(gameID),
		obslog.Player(playerID),
		zap.Int("dice", out.Dice),
		zap.Bool("forfeited", out.Forfeited),
	)
	return out, nil
}

// Move applies a figure move for the pending dice.
func (e *Engine) Move(ctx context.Context, req MoveRequest) (*MoveOutcome, error) {
	if !req.Figure.Valid() {
		return nil, apperr.New(apperr.CodeInvalidFigure, "unknown figure %v", req.Figure)
	}
	if err := req.From.Validate(); err != nil {
		return nil, err
	}
	if err := req.To.Validate(); err != nil {
		return nil, err
	}
	out := &MoveOutcome{}
	res, err := e.mutate(ctx, "move", req.GameID, func(g *domain.Game, b *eventlog.Batch) error {
		if err := requireTurn(g, req.PlayerID); err != nil {
			return err
		}
		dice := g.PendingDice
		if dice == 0 {
			return apperr.New(apperr.CodeNoDice, "roll before moving")
		}
		color, err := g.CurrentColor()
		if err != nil {
			return err
		}
		if req.Figure.Color != color {
			return apperr.New(apperr.CodeFigureNotOwned, "figure %s is not %s", req.Figure, color)
		}
		if occ, ok := g.Board.Occupant(req.From); !ok || occ != req.Figure {
			return apperr.New(apperr.CodeFigureNotAtFrom, "figure %s is not at %s", req.Figure, req.From)
		}
		dest, ok := rules.LegalDestination(color, req.From, dice)
		if !ok || dest != req.To {
			return apperr.New(apperr.CodeIllegalMove, "%s cannot move %s -> %s with %d", req.Figure, req.From, req.To, dice)
		}
		if rules.Blocked(&g.Board, color, dest) {
			return apperr.New(apperr.CodeBlocked, "%s is occupied by own figure", dest)
		}
		captured, err := rules.Apply(&g.Board, rules.Move{Figure: req.Figure, From: req.From, To: dest})
		if err != nil {
			return err
		}
		if err := g.Board.Validate(); err != nil {
			return err
		}
		out.Captured = captured
		g.PendingDice = 0

		payload := map[string]any{
			"figureId": req.Figure,
			"from":     req.From,
			"to":       dest,
			"dice":     dice,
			"color":    color,
		}
		if !captured.IsZero() {
			payload["captured"] = captured
		}
		if err := b.Emit(eventlog.FigureMoved, req.PlayerID, payload); err != nil {
			return err
		}

		if rules.WinCondition(&g.Board, color) {
			out.Won = true
			g.Winner = color
			g.State = domain.StateFinished
			g.FinishedAt = e.now()
			return b.Emit(eventlog.GameFinished, req.PlayerID, map[string]any{
				"winner": color,
				"rounds": g.Turn.Round,
				"turns":  g.Turn.TurnNumber,
			})
		}
		g.Turn.Advance(dice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Game = res.Game
	obslog.L().Info("game_move",
		obslog.Game(req.GameID),
		obslog.Player(req.PlayerID),
		zap.String("figure", req.Figure.String()),
		zap.String("to", req.To.String()),
		zap.Bool("capture", !out.Captured.IsZero()),
	)
	if out.Won {
		obslog.L().Info("game_finish", obslog.Game(req.GameID), zap.String("winner", string(res.Game.Winner)))
		e.persistIfFinal(ctx, res.Game)
	}
	return out, nil
}

// LegalMoves lists the moves available for the pending dice. It is empty when
// nothing has been rolled.
func (e *Engine) LegalMoves(ctx context.Context, gameID string) ([]rules.Move, error) {
	g, err := e.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.State != domain.StatePlaying || g.PendingDice == 0 {
		return []rules.Move{}, nil
	}
	color, err := g.CurrentColor()
	if err != nil {
		return nil, err
	}
	moves := rules.LegalMoves(&g.Board, color, g.PendingDice)
	if moves == nil {
		moves = []rules.Move{}
	}
	return moves, nil
}

// SendChat appends a chat message. Team-scoped messages are only delivered to
// members of the sender's team.
func (e *Engine) SendChat(ctx context.Context, gameID, playerID, text string, scope eventlog.Scope) (*eventlog.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.CodeEmptyMessage, "empty chat message")
	}
	if len([]rune(text)) > e.cfg.MaxChatLength {
		return nil, apperr.New(apperr.CodeMessageTooLong, "chat message over %d characters", e.cfg.MaxChatLength)
	}
	if scope == "" {
		scope = eventlog.ScopePublic
	}
	if scope != eventlog.ScopePublic && scope != eventlog.ScopeTeam {
		return nil, apperr.New(apperr.CodeInvalidScope, "unknown scope %q", scope)
	}
	var posted eventlog.ChatMessage
	_, err := e.mutate(ctx, "chat", gameID, func(g *domain.Game, b *eventlog.Batch) error {
		p, ok := g.Player(playerID)
		if !ok {
			return apperr.New(apperr.CodePlayerNotFound, "player %s not in game", playerID)
		}
		msg := eventlog.ChatMessage{PlayerID: p.ID, PlayerName: p.Name, Text: text, Scope: scope}
		if scope == eventlog.ScopeTeam {
			if g.Mode != turn.ModeTeam {
				return apperr.New(apperr.CodeWrongMode, "team chat needs a team game")
			}
			if p.TeamID == "" {
				return apperr.New(apperr.CodeNotTeamMember, "player %s has no team", p.ID)
			}
			msg.TeamID = p.TeamID
		}
		posted = b.Post(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &posted, nil
}
