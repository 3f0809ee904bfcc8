// Package game runs the rule and turn state machine on top of a store.
package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/store"
)

// Dice draws one roll in 1..6.
type Dice interface {
	Roll() (int, error)
}

// CryptoDice draws uniformly from crypto/rand.
type CryptoDice struct{}

func (CryptoDice) Roll() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		return 0, fmt.Errorf("draw dice: %w", err)
	}
	return int(n.Int64()) + 1, nil
}

// Archiver receives finished games.
type Archiver interface {
	SaveResult(ctx context.Context, r *domain.GameResult) error
}

type Config struct {
	TeamSize         int
	AutoCreateOnJoin bool
	MaxChatLength    int
	MaxNameLength    int
}

type Engine struct {
	store   store.Store
	dice    Dice
	archive Archiver
	cfg     Config
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Engine)

func WithDice(d Dice) Option { return func(e *Engine) { e.dice = d } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithCodeGenerator(f func() (string, error)) Option { return func(e *Engine) { e.newCode = f } }

func New(st store.Store, cfg Config, opts ...Option) *Engine {
	if cfg.TeamSize <= 0 {
		cfg.TeamSize = 4
	}
	if cfg.MaxChatLength <= 0 {
		cfg.MaxChatLength = 500
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = 32
	}
	e := &Engine{
		store:   st,
		dice:    CryptoDice{},
		cfg:     cfg,
		now:     time.Now,
		newCode: codeGen,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AttachArchiver wires a repository for persisting finished games.
func (e *Engine) AttachArchiver(a Archiver) {
	if e != nil {
		e.archive = a
	}
}

// codeGen returns 6 characters from an alphabet without look-alikes. The
// alphabet has 32 symbols so the byte modulo is unbiased.
func codeGen() (string, error) {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}

// mutate runs fn as one store transaction and logs the outcome by kind.
func (e *Engine) mutate(ctx context.Context, op, gameID string, fn store.MutateFunc) (*store.Result, error) {
	res, err := e.store.Mutate(ctx, gameID, fn)
	if err != nil {
		logRejection(op, gameID, err)
		return nil, err
	}
	return res, nil
}

func logRejection(op, gameID string, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		obslog.L().Error("game_op_error", zap.String("op", op), obslog.Game(gameID), zap.Error(err))
		return
	}
	switch ae.Kind() {
	case apperr.KindInvariant:
		if ae.Code == apperr.CodeStorage {
			obslog.L().Error("game_storage_error", zap.String("op", op), obslog.Game(gameID), zap.Error(err))
			return
		}
		obslog.L().Error("game_invariant_violation",
			zap.String("op", op),
			obslog.Game(gameID),
			zap.String("code", string(ae.Code)),
			zap.Error(err),
		)
	default:
		obslog.L().Info("game_rejected",
			zap.String("op", op),
			obslog.Game(gameID),
			zap.String("code", string(ae.Code)),
		)
	}
}

func (e *Engine) cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > e.cfg.MaxNameLength {
		return "", apperr.New(apperr.CodeInvalidName, "player name must be 1-%d characters", e.cfg.MaxNameLength)
	}
	return name, nil
}

// Game returns the current document by id.
func (e *Engine) Game(ctx context.Context, id string) (*domain.Game, error) {
	return e.store.Load(ctx, id)
}

// Resolve accepts either a game id or a share code.
func (e *Engine) Resolve(ctx context.Context, ref string) (*domain.Game, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.New(apperr.CodeMissingField, "gameId is required")
	}
	g, err := e.store.Load(ctx, ref)
	if err == nil {
		return g, nil
	}
	if !apperr.Is(err, apperr.CodeGameNotFound) {
		return nil, err
	}
	return e.store.FindByCode(ctx, ref)
}

// OpenGames lists games still accepting players.
func (e *Engine) OpenGames(ctx context.Context, limit int) ([]*domain.Game, error) {
	return e.store.ListOpen(ctx, limit)
}

func (e *Engine) persistIfFinal(ctx context.Context, g *domain.Game) {
	if e.archive == nil || g == nil || !g.Finished() {
		return
	}
	if err := e.archive.SaveResult(ctx, domain.ResultFromGame(g)); err != nil {
		obslog.L().Error("game_result_persist_error", obslog.Game(g.ID), zap.Error(err))
		return
	}
	obslog.L().Info("game_result_persist", obslog.Game(g.ID), zap.String("winner", string(g.Winner)))
}

func newID() string { return uuid.NewString() }
