// Package httpapi wires Greylock's fasthttp handlers. Grounded on the
// teacher's service/pkg/api/http.go (RegisterRoutes/Handler shape,
// fasthttpadaptor wrapping of promhttp.Handler for /metrics) and
// original_source/src/server.cpp's on_index/on_search/on_ping/on_compact
// handlers for the request/response shapes (SPEC_FULL §13).
package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"golang.org/x/time/rate"

	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/logger"
	"github.com/Ozhiganov/greylock/internal/model"
	"github.com/Ozhiganov/greylock/internal/retriever"
	"github.com/Ozhiganov/greylock/internal/router"
	"github.com/Ozhiganov/greylock/internal/worker"
)

// Server bundles the dependencies handlers need to serve requests.
type Server struct {
	engine     *kvengine.Engine
	pool       *worker.Pool
	retriever  *retriever.Retriever
	limiters   *mailboxLimiters
	maxNumber  int64
	defMax     int64
}

// Options configures rate limiting and pagination defaults. The
// max-number fields come from config.Config's retrieval block; the
// rate-limit fields have no config entry, and New fills in its own
// defaults when they are zero.
type Options struct {
	DefaultMaxNumber int64
	MaxMaxNumber     int64
	RateLimitRPS     float64
	RateLimitBurst   int
}

// New builds a Server. pool may be nil in read-only deployments that only
// serve search.
func New(engine *kvengine.Engine, pool *worker.Pool, ret *retriever.Retriever, opts Options) *Server {
	if opts.DefaultMaxNumber <= 0 {
		opts.DefaultMaxNumber = 20
	}
	if opts.MaxMaxNumber <= 0 {
		opts.MaxMaxNumber = 1000
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 50
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 100
	}
	return &Server{
		engine:    engine,
		pool:      pool,
		retriever: ret,
		limiters:  newMailboxLimiters(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst),
		maxNumber: opts.MaxMaxNumber,
		defMax:    opts.DefaultMaxNumber,
	}
}

// RegisterRoutes wires every SPEC_FULL §13 endpoint onto r.
func (s *Server) RegisterRoutes(r *router.Router) {
	r.GET("/v1/ping", s.handlePing)
	r.POST("/v1/mailboxes/{mailbox}/documents", s.handleIndex)
	r.POST("/v1/search", s.handleSearch)
	r.POST("/v1/compact", s.handleCompact)
	r.GET("/metrics", wrapHTTPHandler(promhttp.Handler()))
}

// Handler returns the fasthttp.RequestHandler serving the whole API.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	s.RegisterRoutes(r)
	return r.Handler
}

func wrapHTTPHandler(h http.Handler) func(ctx *fasthttp.RequestCtx) {
	return func(ctx *fasthttp.RequestCtx) {
		fasthttpadaptor.NewFastHTTPHandler(h)(ctx)
	}
}

func (s *Server) handlePing(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, map[string]string{"status": "ok"})
}

func (s *Server) handleCompact(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	if err := s.engine.Compact(nil, nil); err != nil {
		logger.Error("http_compact_failed", "error", err)
		writeJSONError(ctx, statusFor(err), err.Error())
		return
	}
	logger.Info("http_compact_done", "elapsed", time.Since(start).String())
	writeJSON(ctx, map[string]string{"status": "ok"})
}

// indexRequestBody is the wire shape of SPEC_FULL §13's index request.
type indexRequestBody struct {
	Documents []indexDocumentBody `json:"documents"`
}

type indexDocumentBody struct {
	ID              string                 `json:"id"`
	Author          string                 `json:"author"`
	Content         contentBody            `json:"content"`
	IndexAttributes []indexAttributeBody   `json:"index_attributes"`
}

type contentBody struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Links  []string `json:"links"`
	Images []string `json:"images"`
}

type indexAttributeBody struct {
	Name  string     `json:"name"`
	Exact [][]string `json:"exact"`
}

type indexResponseDocument struct {
	ID        string `json:"id"`
	IndexedID string `json:"indexed_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
}

func attrText(c contentBody, name string) string {
	switch name {
	case "title":
		return c.Title
	case "body":
		return c.Body
	default:
		return ""
	}
}

func buildContent(c contentBody) model.Content {
	return model.Content{Title: c.Title, Body: c.Body, Links: c.Links, Images: c.Images}
}
