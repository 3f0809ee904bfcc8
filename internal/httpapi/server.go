// Package httpapi exposes the game engine and the sync protocol over HTTP
// using fasthttp. Every response is a madndto.Envelope.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/domain"
	"github.com/park285/madn-server/internal/game"
	"github.com/park285/madn-server/internal/msgcat"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/syncproto"
	"github.com/park285/madn-server/pkg/madndto"
)

// ResultSource lists archived results. A nil source serves an empty list.
type ResultSource interface {
	RecentResults(ctx context.Context, limit int) ([]*domain.GameResult, error)
}

type Server struct {
	engine  *game.Engine
	sync    *syncproto.Service
	results ResultSource
	cat     *msgcat.Catalog
	timeout time.Duration
	srv     *fasthttp.Server
}

type Option func(*Server)

func WithResults(r ResultSource) Option { return func(s *Server) { s.results = r } }

func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.cat = c } }

func WithRequestTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

func New(engine *game.Engine, sync *syncproto.Service, opts ...Option) *Server {
	s := &Server{engine: engine, sync: sync, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "madn-server",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler routes one request.
func (s *Server) Handler(rc *fasthttp.RequestCtx) {
	started := time.Now()
	path := string(rc.Path())
	switch {
	case path == "/api/game" && rc.IsPost():
		s.handleGame(rc)
	case path == "/api/poll" && rc.IsGet():
		s.handlePoll(rc)
	case path == "/api/ping":
		s.writeOK(rc, madndto.PingResponse{ServerTime: s.sync.Ping()})
	case path == "/api/results" && rc.IsGet():
		s.handleResults(rc)
	case path == "/api/game", path == "/api/poll", path == "/api/results":
		s.writeError(rc, apperr.New(apperr.CodeInvalidRequest, "method %s not allowed", rc.Method()), fasthttp.StatusMethodNotAllowed)
	default:
		s.writeError(rc, apperr.New(apperr.CodeInvalidRequest, "no route for %s", path), fasthttp.StatusNotFound)
	}
	obslog.L().Debug("http_request",
		zap.String("method", string(rc.Method())),
		zap.String("path", path),
		zap.Int("status", rc.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Server) handleGame(rc *fasthttp.RequestCtx) {
	var req madndto.GameRequest
	if err := json.Unmarshal(rc.PostBody(), &req); err != nil {
		s.fail(rc, apperr.Wrap(apperr.CodeInvalidRequest, err, "decode request body"))
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()
	data, err := s.dispatch(ctx, &req)
	if err != nil {
		s.fail(rc, err)
		return
	}
	s.writeOK(rc, data)
}

func (s *Server) handlePoll(rc *fasthttp.RequestCtx) {
	args := rc.QueryArgs()
	req := syncproto.Request{
		GameID:   string(args.Peek("gameId")),
		Since:    string(args.Peek("since")),
		PlayerID: string(args.Peek("playerId")),
	}
	ctx, cancel := s.requestContext()
	defer cancel()
	resp, err := s.sync.Poll(ctx, req)
	if err != nil {
		s.fail(rc, err)
		return
	}
	s.writeOK(rc, toDTOPoll(resp))
}

func (s *Server) handleResults(rc *fasthttp.RequestCtx) {
	limit := 20
	if raw := rc.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n <= 0 {
			s.fail(rc, apperr.New(apperr.CodeInvalidRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	out := madndto.ResultsResponse{Results: []madndto.Result{}}
	if s.results != nil {
		ctx, cancel := s.requestContext()
		defer cancel()
		list, err := s.results.RecentResults(ctx, limit)
		if err != nil {
			s.fail(rc, err)
			return
		}
		for _, r := range list {
			out.Results = append(out.Results, toDTOResult(r))
		}
	}
	s.writeOK(rc, out)
}

// fail writes err with the status of its kind. Internal faults are logged;
// rejections were already logged by the engine.
func (s *Server) fail(rc *fasthttp.RequestCtx, err error) {
	if errors.Is(err, context.DeadlineExceeded) && apperr.CodeOf(err) == apperr.CodeUnknown {
		err = apperr.Wrap(apperr.CodeStorage, err, "request timed out")
	}
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if status >= 500 {
		obslog.L().Error("http_internal_error", zap.String("path", string(rc.Path())), zap.Error(err))
	}
	s.writeError(rc, err, status)
}

func (s *Server) writeError(rc *fasthttp.RequestCtx, err error, status int) {
	code := apperr.CodeOf(err)
	body := madndto.Envelope{
		Success: false,
		Error: &madndto.Error{
			Kind:      string(code.Kind()),
			Code:      string(code),
			Message:   s.cat.Rejection(string(code)),
			Retryable: code == apperr.CodeConcurrentUpdate,
		},
	}
	s.write(rc, status, body)
}

func (s *Server) writeOK(rc *fasthttp.RequestCtx, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.fail(rc, apperr.Wrap(apperr.CodeUnknown, err, "encode response"))
		return
	}
	s.write(rc, fasthttp.StatusOK, madndto.Envelope{Success: true, Data: raw})
}

func (s *Server) write(rc *fasthttp.RequestCtx, status int, body madndto.Envelope) {
	raw, err := json.Marshal(body)
	if err != nil {
		rc.Error(`{"success":false}`, fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json; charset=utf-8")
	rc.Response.Header.Set(fasthttp.HeaderCacheControl, "no-store")
	rc.SetBody(raw)
}
