package httpapi

import (
	"context"
	"strings"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/board"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/game"
	"github.com/park285/madn-server/internal/turn"
	"github.com/park285/madn-server/pkg/madndto"
)

const lobbyLimit = 20

// dispatch runs one POST /api/game action and returns the response data.
func (s *Server) dispatch(ctx context.Context, req *madndto.GameRequest) (any, error) {
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case madndto.ActionCreate:
		g, err := s.engine.CreateGame(ctx, turn.Mode(strings.ToLower(strings.TrimSpace(req.Mode))), req.Capacity)
		if err != nil {
			return nil, err
		}
		return madndto.GameResponse{Game: toDTOGame(g)}, nil

	case madndto.ActionJoin:
		ref := req.GameID
		if strings.TrimSpace(ref) == "" {
			ref = req.Code
		}
		if err := require("gameId", ref, "playerName", req.PlayerName); err != nil {
			return nil, err
		}
		g, p, err := s.engine.Join(ctx, game.JoinRequest{GameRef: ref, Name: req.PlayerName, TeamColor: req.TeamColor})
		if err != nil {
			return nil, err
		}
		dp := toDTOPlayer(*p)
		return madndto.JoinResponse{Game: toDTOGame(g), Player: &dp, Token: p.Token}, nil

	case madndto.ActionStart:
		if err := require("gameId", req.GameID); err != nil {
			return nil, err
		}
		g, err := s.engine.Start(ctx, req.GameID, req.PlayerID)
		if err != nil {
			return nil, err
		}
		return madndto.GameResponse{Game: toDTOGame(g)}, nil

	case madndto.ActionRoll:
		if err := require("gameId", req.GameID, "playerId", req.PlayerID); err != nil {
			return nil, err
		}
		out, err := s.engine.Roll(ctx, req.GameID, req.PlayerID)
		if err != nil {
			return nil, err
		}
		return madndto.RollResponse{Dice: out.Dice, Forfeited: out.Forfeited, LegalMoves: toDTOMoves(out.Moves), Game: toDTOGame(out.Game)}, nil

	case madndto.ActionMove:
		mv, err := moveRequest(req)
		if err != nil {
			return nil, err
		}
		out, err := s.engine.Move(ctx, mv)
		if err != nil {
			return nil, err
		}
		return madndto.MoveResponse{Captured: cellText(out.Captured), Won: out.Won, Game: toDTOGame(out.Game)}, nil

	case madndto.ActionChat:
		if err := require("gameId", req.GameID, "playerId", req.PlayerID); err != nil {
			return nil, err
		}
		msg, err := s.engine.SendChat(ctx, req.GameID, req.PlayerID, req.Text, eventlog.Scope(strings.ToLower(strings.TrimSpace(req.Scope))))
		if err != nil {
			return nil, err
		}
		dm := toDTOMessage(*msg)
		return madndto.ChatResponse{Message: &dm}, nil

	case madndto.ActionLegalMoves:
		if err := require("gameId", req.GameID); err != nil {
			return nil, err
		}
		moves, err := s.engine.LegalMoves(ctx, req.GameID)
		if err != nil {
			return nil, err
		}
		return madndto.LegalMovesResponse{Moves: toDTOMoves(moves)}, nil

	case madndto.ActionFind:
		ref := req.GameID
		if strings.TrimSpace(ref) == "" {
			ref = req.Code
		}
		if err := require("code", ref); err != nil {
			return nil, err
		}
		g, err := s.engine.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		return madndto.GameResponse{Game: toDTOGame(g)}, nil

	case madndto.ActionLobby:
		limit := req.Limit
		if limit <= 0 || limit > 100 {
			limit = lobbyLimit
		}
		games, err := s.engine.OpenGames(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := madndto.LobbyResponse{Games: make([]*madndto.Game, 0, len(games))}
		for _, g := range games {
			out.Games = append(out.Games, toDTOGame(g))
		}
		return out, nil

	case "":
		return nil, apperr.New(apperr.CodeMissingField, "action is required")
	default:
		return nil, apperr.New(apperr.CodeUnknownAction, "unknown action %q", req.Action)
	}
}

// require checks name/value pairs for blank values.
func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return apperr.New(apperr.CodeMissingField, "%s is required", pairs[i])
		}
	}
	return nil
}

func moveRequest(req *madndto.GameRequest) (game.MoveRequest, error) {
	if err := require("gameId", req.GameID, "playerId", req.PlayerID, "figureId", req.FigureID); err != nil {
		return game.MoveRequest{}, err
	}
	if req.From == nil || req.To == nil {
		return game.MoveRequest{}, apperr.New(apperr.CodeMissingField, "from and to are required")
	}
	fig, err := board.ParseFigureID(req.FigureID)
	if err != nil {
		return game.MoveRequest{}, err
	}
	return game.MoveRequest{
		GameID:   req.GameID,
		PlayerID: req.PlayerID,
		Figure:   fig,
		From:     fromDTOPosition(req.From),
		To:       fromDTOPosition(req.To),
	}, nil
}
