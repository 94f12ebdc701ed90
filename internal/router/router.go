// Package router dispatches Greylock's HTTP surface (SPEC_FULL §13): a
// handful of exact paths plus a single route that carries a path
// variable, POST /v1/mailboxes/{mailbox}/documents. That route set is
// fixed by the spec and does not grow, so rather than the teacher's
// service/pkg/router's general {name}-segment matcher, dispatch here is
// a direct method+path lookup with one prefix/suffix carve-out for the
// mailbox route — a generic multi-segment parser would buy nothing but
// indirection over a surface this small.
package router

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// MailboxParam is the ctx.UserValue key populated for the mailbox route.
const MailboxParam = "mailbox"

const (
	mailboxPrefix = "/v1/mailboxes/"
	mailboxSuffix = "/documents"
	mailboxRoute  = mailboxPrefix + "{" + MailboxParam + "}" + mailboxSuffix
)

// Router dispatches by HTTP method against Greylock's route table.
type Router struct {
	exact           map[string]map[string]fasthttp.RequestHandler
	mailboxByMethod map[string]fasthttp.RequestHandler
	notFound        fasthttp.RequestHandler
}

// New constructs an empty Router.
func New() *Router {
	return &Router{
		exact:           make(map[string]map[string]fasthttp.RequestHandler),
		mailboxByMethod: make(map[string]fasthttp.RequestHandler),
	}
}

// Handler satisfies fasthttp.Server's handler signature.
func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.Path())

	if handlers, ok := r.exact[method]; ok {
		if h, ok := handlers[path]; ok {
			h(ctx)
			return
		}
	}
	if h, ok := r.mailboxByMethod[method]; ok {
		if mailbox, ok := parseMailboxDocumentsPath(path); ok {
			ctx.SetUserValue(MailboxParam, mailbox)
			h(ctx)
			return
		}
	}
	if r.notFound != nil {
		r.notFound(ctx)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNotFound)
}

func (r *Router) GET(path string, h fasthttp.RequestHandler)    { r.add("GET", path, h) }
func (r *Router) POST(path string, h fasthttp.RequestHandler)   { r.add("POST", path, h) }
func (r *Router) PUT(path string, h fasthttp.RequestHandler)    { r.add("PUT", path, h) }
func (r *Router) DELETE(path string, h fasthttp.RequestHandler) { r.add("DELETE", path, h) }

// NotFound registers a fallback handler for unmatched routes.
func (r *Router) NotFound(h fasthttp.RequestHandler) { r.notFound = h }

func (r *Router) add(method, path string, h fasthttp.RequestHandler) {
	if path == mailboxRoute {
		r.mailboxByMethod[method] = h
		return
	}
	if r.exact[method] == nil {
		r.exact[method] = make(map[string]fasthttp.RequestHandler)
	}
	r.exact[method][path] = h
}

// parseMailboxDocumentsPath extracts {mailbox} from
// /v1/mailboxes/{mailbox}/documents, rejecting an empty mailbox name or
// one that would itself contain a path separator.
func parseMailboxDocumentsPath(path string) (string, bool) {
	if !strings.HasPrefix(path, mailboxPrefix) || !strings.HasSuffix(path, mailboxSuffix) {
		return "", false
	}
	mailbox := path[len(mailboxPrefix) : len(path)-len(mailboxSuffix)]
	if mailbox == "" || strings.Contains(mailbox, "/") {
		return "", false
	}
	return mailbox, true
}
