package pollclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/pkg/madndto"
)

// HTTPClient talks to a madn server. It implements Fetcher and also sends
// game actions for tools.
type HTTPClient struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type HTTPOption func(*HTTPClient)

func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) HTTPOption {
	return func(c *HTTPClient) { c.http.MaxConnsPerHost = n }
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(d fasthttp.DialFunc) HTTPOption {
	return func(c *HTTPClient) { c.http.Dial = d }
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Poll(ctx context.Context, req madndto.PollRequest) (*madndto.PollResponse, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("gameId", req.GameID)
	if req.Since != "" {
		args.Set("since", req.Since)
	}
	if req.PlayerID != "" {
		args.Set("playerId", req.PlayerID)
	}
	var out madndto.PollResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/poll?"+args.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Action posts one game action and decodes its data into out.
func (c *HTTPClient) Action(ctx context.Context, req madndto.GameRequest, out any) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/game", req, out)
}

func (c *HTTPClient) Ping(ctx context.Context) (time.Time, error) {
	var out madndto.PingResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/ping", nil, &out); err != nil {
		return time.Time{}, err
	}
	return out.ServerTime, nil
}

// doJSON performs one request. Network failures, server faults and
// unreadable bodies are transport errors; other rejections come back as
// madndto.Error.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return apperr.Wrap(apperr.CodeTransport, err, "request failed")
	}

	var env madndto.Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return apperr.Wrap(apperr.CodeTransport, err,
			fmt.Sprintf("decode response: status=%d body=%s", resp.StatusCode(), truncate(string(resp.Body()), 256)))
	}
	if !env.Success && env.Error == nil {
		return apperr.New(apperr.CodeTransport, "status=%d without error body", resp.StatusCode())
	}
	return env.Decode(out)
}

func (c *HTTPClient) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
