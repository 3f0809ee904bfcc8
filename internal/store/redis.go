package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/eventlog"
	"github.com/park285/madn-server/internal/obslog"
)

// maxCASAttempts bounds optimistic retries before a mutation is reported as
// a concurrent update.
const maxCASAttempts = 8

// Redis keeps one JSON document per game and guards it with WATCH/MULTI.
// Event and chat logs are capped lists written in the same transaction.
type Redis struct {
	rdb  *redis.Client
	opts Options
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string, opts Options) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	ro, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(rdb, opts), nil
}

func NewRedisWithClient(rdb *redis.Client, opts Options) *Redis {
	return &Redis{rdb: rdb, opts: opts.withDefaults()}
}

func (s *Redis) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(id string) string { return "madn:game:" + strings.TrimSpace(id) }
func eventsKey(id string) string { return gameKey(id) + ":events" }
func chatKey(id string) string { return gameKey(id) + ":chat" }
func seenKey(id string) string { return gameKey(id) + ":seen" }
func codeKey(code string) string { return "madn:code:" + strings.ToUpper(strings.TrimSpace(code)) }
func openIndexKey() string { return "madn:open" }

func storageErr(err error, op string) error {
	return apperr.Wrap(apperr.CodeStorage, err, op)
}

func (s *Redis) Create(ctx context.Context, g *domain.Game, fn MutateFunc) (*Result, error) {
	now := s.opts.Now()
	cp := g.Clone()
	batch := eventlog.NewBatch(cp.ID, &cp.Clock, now)
	if fn != nil {
		if err := fn(cp, batch); err != nil {
			return nil, err
		}
	}
	commit(cp, now)
	raw, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("marshal game: %w", err)
	}
	gk, ck := gameKey(cp.ID), codeKey(cp.Code)

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, gk, ck).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCodeTaken
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gk, raw, s.opts.TTL)
			pipe.Set(ctx, ck, cp.ID, s.opts.TTL)
			if isOpen(cp) {
				pipe.ZAdd(ctx, openIndexKey(), redis.Z{Score: float64(cp.CreatedAt.UnixMilli()), Member: cp.ID})
			}
			return s.appendLogs(ctx, pipe, cp.ID, batch)
		})
		return err
	}, gk, ck)
	switch {
	case errors.Is(err, ErrCodeTaken):
		return nil, ErrCodeTaken
	case errors.Is(err, redis.TxFailedErr):
		// 동시 생성 경합: 호출자가 새 코드로 재시도
		return nil, ErrCodeTaken
	case err != nil:
		return nil, storageErr(err, "create game")
	}
	return &Result{Game: cp, Events: batch.Events(), Messages: batch.Messages()}, nil
}

func (s *Redis) appendLogs(ctx context.Context, pipe redis.Pipeliner, id string, batch *eventlog.Batch) error {
	if evs := batch.Events(); len(evs) > 0 {
		vals := make([]any, 0, len(evs))
		for _, e := range evs {
			b, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			vals = append(vals, b)
		}
		pipe.RPush(ctx, eventsKey(id), vals...)
		pipe.LTrim(ctx, eventsKey(id), int64(-s.opts.EventRetention), -1)
	}
	if msgs := batch.Messages(); len(msgs) > 0 {
		vals := make([]any, 0, len(msgs))
		for _, m := range msgs {
			b, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("marshal chat: %w", err)
			}
			vals = append(vals, b)
		}
		pipe.RPush(ctx, chatKey(id), vals...)
		pipe.LTrim(ctx, chatKey(id), int64(-s.opts.ChatRetention), -1)
	}
	pipe.Expire(ctx, eventsKey(id), s.opts.TTL)
	pipe.Expire(ctx, chatKey(id), s.opts.TTL)
	return nil
}

func (s *Redis) Load(ctx context.Context, id string) (*domain.Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "load game")
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, storageErr(err, "decode game")
	}
	return &g, nil
}

func (s *Redis) FindByCode(ctx context.Context, code string) (*domain.Game, error) {
	id, err := s.rdb.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(code)
	}
	if err != nil {
		return nil, storageErr(err, "lookup code")
	}
	return s.Load(ctx, id)
}

func (s *Redis) Mutate(ctx context.Context, id string, fn MutateFunc) (*Result, error) {
	gk := gameKey(id)
	var res *Result
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, gk).Bytes()
			if errors.Is(err, redis.Nil) {
				return notFound(id)
			}
			if err != nil {
				return storageErr(err, "load game")
			}
			var cur domain.Game
			if err := json.Unmarshal(raw, &cur); err != nil {
				return storageErr(err, "decode game")
			}
			now := s.opts.Now()
			batch := eventlog.NewBatch(cur.ID, &cur.Clock, now)
			if err := fn(&cur, batch); err != nil {
				return err
			}
			commit(&cur, now)
			newRaw, err := json.Marshal(&cur)
			if err != nil {
				return fmt.Errorf("marshal game: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, gk, newRaw, s.opts.TTL)
				pipe.Expire(ctx, codeKey(cur.Code), s.opts.TTL)
				if isOpen(&cur) {
					pipe.ZAdd(ctx, openIndexKey(), redis.Z{Score: float64(cur.CreatedAt.UnixMilli()), Member: cur.ID})
				} else {
					pipe.ZRem(ctx, openIndexKey(), cur.ID)
				}
				return s.appendLogs(ctx, pipe, cur.ID, batch)
			})
			if err != nil {
				return err
			}
			res = &Result{Game: &cur, Events: batch.Events(), Messages: batch.Messages()}
			return nil
		}, gk)
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("store_cas_retry", obslog.Game(id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			var ae *apperr.Error
			if errors.As(err, &ae) {
				return nil, err
			}
			return nil, storageErr(err, "mutate game")
		}
		return res, nil
	}
	obslog.L().Warn("store_cas_exhausted", obslog.Game(id), zap.Int("attempts", maxCASAttempts))
	return nil, apperr.New(apperr.CodeConcurrentUpdate, "game %s changed concurrently", id)
}

// Read fetches the document, both logs and the heartbeat hash in one MULTI so
// a concurrent mutation is either fully visible or not at all.
func (s *Redis) Read(ctx context.Context, id string) (*Snapshot, error) {
	pipe := s.rdb.TxPipeline()
	gameCmd := pipe.Get(ctx, gameKey(id))
	evCmd := pipe.LRange(ctx, eventsKey(id), 0, -1)
	chatCmd := pipe.LRange(ctx, chatKey(id), 0, -1)
	seenCmd := pipe.HGetAll(ctx, seenKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, storageErr(err, "read snapshot")
	}
	raw, err := gameCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "read game")
	}
	snap := &Snapshot{Game: &domain.Game{}, Seen: make(map[string]time.Time)}
	if err := json.Unmarshal(raw, snap.Game); err != nil {
		return nil, storageErr(err, "decode game")
	}
	for _, item := range evCmd.Val() {
		var e eventlog.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, storageErr(err, "decode event")
		}
		snap.Events = append(snap.Events, e)
	}
	for _, item := range chatCmd.Val() {
		var m eventlog.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, storageErr(err, "decode chat")
		}
		snap.Messages = append(snap.Messages, m)
	}
	for pid, v := range seenCmd.Val() {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		snap.Seen[pid] = time.UnixMilli(ms)
	}
	return snap, nil
}

// Touch records a heartbeat outside the game document so polls never contend
// with game mutations.
func (s *Redis) Touch(ctx context.Context, gameID, playerID string, at time.Time) error {
	n, err := s.rdb.Exists(ctx, gameKey(gameID)).Result()
	if err != nil {
		return storageErr(err, "touch")
	}
	if n == 0 {
		return notFound(gameID)
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, seenKey(gameID), playerID, at.UnixMilli())
	pipe.Expire(ctx, seenKey(gameID), s.opts.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return storageErr(err, "touch")
	}
	return nil
}

// ListOpen returns joinable games, newest first. Expired ids are pruned from
// the index lazily.
func (s *Redis) ListOpen(ctx context.Context, limit int) ([]*domain.Game, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, openIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, storageErr(err, "list open")
	}
	var out []*domain.Game
	for _, id := range ids {
		g, err := s.Load(ctx, id)
		if apperr.Is(err, apperr.CodeGameNotFound) {
			_ = s.rdb.ZRem(ctx, openIndexKey(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if isOpen(g) {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
