// Package pollclient follows a game through the poll endpoint. Cadence is an
// explicit state machine; transport failures back off exponentially and end
// in a terminal error after a bounded number of retries.
package pollclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/pkg/madndto"
)

// State is the cadence state of a client.
type State string

const (
	StateIdle    State = "idle"
	StateNormal  State = "normal"
	StateFast    State = "fast"
	StateSlow    State = "slow"
	StateBackoff State = "backoff"
	StateFailed  State = "failed"
	StateStopped State = "stopped"
)

// Fetcher performs one poll round trip.
type Fetcher interface {
	Poll(ctx context.Context, req madndto.PollRequest) (*madndto.PollResponse, error)
}

type Config struct {
	GameID   string
	PlayerID string

	Normal     time.Duration
	Fast       time.Duration
	Slow       time.Duration
	Inactivity time.Duration
	Timeout    time.Duration

	RetryInitial time.Duration
	MaxRetries   int
}

func (c Config) withDefaults() Config {
	if c.Normal <= 0 {
		c.Normal = 3 * time.Second
	}
	if c.Fast <= 0 {
		c.Fast = time.Second
	}
	if c.Slow <= 0 {
		c.Slow = 2 * c.Normal
	}
	if c.Inactivity <= 0 {
		c.Inactivity = 5 * time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 2 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	return c
}

// Handlers are called from the poll goroutine, one at a time.
type Handlers struct {
	OnUpdate    func(*madndto.PollResponse)
	OnReconnect func()
	OnFailed    func(error)
	OnState     func(from, to State)
}

type Client struct {
	fetch Fetcher
	cfg   Config
	h     Handlers
	now   func() time.Time

	mu           sync.Mutex
	state        State
	cursor       string
	visible      bool
	lastActivity time.Time

	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type Option func(*Client)

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func New(f Fetcher, cfg Config, h Handlers, opts ...Option) *Client {
	c := &Client{
		fetch:   f,
		cfg:     cfg.withDefaults(),
		h:       h,
		now:     time.Now,
		state:   StateIdle,
		visible: true,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActivity = c.now()
	return c
}

// Start launches the poll loop. The first poll runs immediately.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return errors.New("pollclient: already started")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop cancels the pending timer and any in-flight poll, then waits for the
// loop to exit. It is safe to call more than once.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	c.stopOnce.Do(cancel)
	<-done
}

// Done is closed when the loop has exited.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// SetVisible records page visibility. Becoming visible polls right away.
func (c *Client) SetVisible(v bool) {
	c.mu.Lock()
	was := c.visible
	c.visible = v
	if v {
		c.lastActivity = c.now()
	}
	c.mu.Unlock()
	if v && !was {
		c.poke()
	}
}

// Focus records user attention and polls right away.
func (c *Client) Focus() {
	c.Touch()
	c.poke()
}

// Touch records local activity without forcing a poll.
func (c *Client) Touch() {
	c.mu.Lock()
	c.lastActivity = c.now()
	c.mu.Unlock()
}

func (c *Client) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	if from != to && c.h.OnState != nil {
		c.h.OnState(from, to)
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.cfg.RetryInitial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.cfg.RetryInitial << c.cfg.MaxRetries,
	}
	b.Reset()
	return b
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	bo := c.newBackOff()
	failures := 0
	var delay time.Duration

	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateStopped)
			return
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
		}

		resp, err := c.pollOnce(ctx)
		if ctx.Err() != nil {
			c.setState(StateStopped)
			return
		}
		if err != nil {
			if isRejection(err, string(apperr.CodeInvalidCursor)) && c.Cursor() != "" {
				// rebuild from the snapshot fallback
				c.mu.Lock()
				c.cursor = ""
				c.mu.Unlock()
				delay = 0
				continue
			}
			if !retryable(err) {
				c.fail(err)
				return
			}
			failures++
			if failures > c.cfg.MaxRetries {
				c.fail(apperr.Wrap(apperr.CodeRetriesExceeded, err, "poll retries exhausted"))
				return
			}
			delay = bo.NextBackOff()
			obslog.L().Warn("poll_backoff",
				obslog.Game(c.cfg.GameID),
				zap.Int("attempt", failures),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			c.setState(StateBackoff)
			continue
		}

		if failures > 0 {
			failures = 0
			bo.Reset()
			obslog.L().Info("poll_reconnect", obslog.Game(c.cfg.GameID))
			if c.h.OnReconnect != nil {
				c.h.OnReconnect()
			}
		}
		c.mu.Lock()
		if resp.Cursor != "" {
			c.cursor = resp.Cursor
		}
		c.mu.Unlock()
		if c.h.OnUpdate != nil {
			c.h.OnUpdate(resp)
		}
		next := c.nextState(resp)
		c.setState(next)
		delay = max(c.interval(next), resp.Hint())
	}
}

func (c *Client) pollOnce(ctx context.Context) (*madndto.PollResponse, error) {
	c.mu.Lock()
	req := madndto.PollRequest{GameID: c.cfg.GameID, Since: c.cursor, PlayerID: c.cfg.PlayerID}
	c.mu.Unlock()
	pctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.fetch.Poll(pctx, req)
}

func (c *Client) fail(err error) {
	obslog.L().Error("poll_failed", obslog.Game(c.cfg.GameID), zap.Error(err))
	c.setState(StateFailed)
	if c.h.OnFailed != nil {
		c.h.OnFailed(err)
	}
}

// nextState picks the cadence tier after a successful poll.
func (c *Client) nextState(resp *madndto.PollResponse) State {
	c.mu.Lock()
	visible, idle := c.visible, c.now().Sub(c.lastActivity)
	c.mu.Unlock()
	switch {
	case !visible || idle >= c.cfg.Inactivity:
		return StateSlow
	case len(resp.Events) > 0 || len(resp.Messages) > 0:
		return StateFast
	default:
		return StateNormal
	}
}

func (c *Client) interval(s State) time.Duration {
	switch s {
	case StateFast:
		return c.cfg.Fast
	case StateSlow:
		return c.cfg.Slow
	default:
		return c.cfg.Normal
	}
}

// retryable reports whether err is worth another attempt. Server rejections
// other than internal faults are final.
func retryable(err error) bool {
	var rej madndto.Error
	if errors.As(err, &rej) {
		return rej.Retryable || rej.Kind == string(apperr.KindInvariant) || rej.Kind == string(apperr.KindTransport)
	}
	return true
}

func isRejection(err error, code string) bool {
	var rej madndto.Error
	return errors.As(err, &rej) && rej.Code == code
}
