// Package server serves a schema over HTTP, one operation or a batch per
// request.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"

	eventbus "github.com/hanpama/relaygraph/internal/eventbus"
	events "github.com/hanpama/relaygraph/internal/events"
	executor "github.com/hanpama/relaygraph/internal/executor"
	language "github.com/hanpama/relaygraph/internal/language"
	reqid "github.com/hanpama/relaygraph/internal/reqid"
	"github.com/hanpama/relaygraph/internal/request"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

// Handler is the GraphQL endpoint.
type Handler struct {
	exec *executor.Executor
	opt  Options
}

// New returns a Handler executing against sch with rt. Requests time out
// after 10 seconds and GraphiQL is on unless opts say otherwise.
func New(rt executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	if rt == nil || sch == nil {
		return nil, errors.New("server: runtime and schema are required")
	}
	opt := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, o := range opts {
		o(&opt)
	}
	return &Handler{exec: executor.NewExecutor(rt, sch), opt: opt}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)

	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	status := h.serve(ctx, w, r)
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
}

// serve writes the response and returns its status.
func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	if len(h.opt.CORSOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORSOrigins)
	}
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent
	case http.MethodGet:
		if h.opt.GraphiQL && r.URL.Query().Get("query") == "" && acceptsHTML(r.Header.Get("Accept")) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(graphiqlPage)
			return http.StatusOK
		}
	case http.MethodPost:
	default:
		return h.reject(w, &requestError{status: http.StatusMethodNotAllowed, message: "method not allowed"})
	}

	var user *request.User
	if h.opt.Auth != nil {
		u, err := h.opt.Auth.Authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			return h.reject(w, &requestError{status: http.StatusUnauthorized, message: err.Error()})
		}
		user = u
	}

	env, rerr := parseRequest(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		return h.reject(w, rerr)
	}

	base := request.Request{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		Header:      forwardedHeaders(r.Header, h.opt.MetadataHeaders),
		User:        user,
	}
	results := make([]specResult, len(env.ops))
	for i, op := range env.ops {
		rr := base
		rr.Files = env.files[i]
		results[i] = h.execute(request.NewContext(ctx, &rr), op)
	}
	if env.batched {
		writeJSON(w, http.StatusOK, results, h.opt.Pretty)
	} else {
		writeJSON(w, http.StatusOK, results[0], h.opt.Pretty)
	}
	return http.StatusOK
}

func (h *Handler) reject(w http.ResponseWriter, e *requestError) int {
	writeJSON(w, e.status, errorResult(&language.Error{Message: e.message}), h.opt.Pretty)
	return e.status
}

// execute parses and runs one operation, publishing its start and finish.
func (h *Handler) execute(ctx context.Context, req GraphQLRequest) specResult {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var perr *language.Error
		if !errors.As(err, &perr) {
			perr = &language.Error{Message: err.Error()}
		}
		return errorResult(perr)
	}

	opType := ""
	if op := doc.Operations.ForName(req.OperationName); op != nil {
		opType = string(op.Operation)
	}
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	res := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	errs := make([]error, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return resultOf(res)
}

// forwardedHeaders keeps the allowed headers under lower-cased keys.
func forwardedHeaders(hdr http.Header, allowed []string) metadata.MD {
	md := metadata.MD{}
	for _, name := range allowed {
		if v := hdr.Values(name); len(v) > 0 {
			md.Append(strings.ToLower(name), v...)
		}
	}
	return md
}
