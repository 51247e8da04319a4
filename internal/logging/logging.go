// Package logging builds the process logger and logs request, operation,
// mutation and connection events published on an eventbus.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	eventbus "github.com/hanpama/relaygraph/internal/eventbus"
	events "github.com/hanpama/relaygraph/internal/events"
	reqid "github.com/hanpama/relaygraph/internal/reqid"
)

// Config selects the level, formatter and destination of the logger.
type Config struct {
	Level  string // logrus level name; empty means info
	Format string // "json" or "text"
	Output string // "stdout" or "stderr"
}

// New returns a logger configured by cfg.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()
	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var out io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}
	l.SetOutput(out)
	return l, nil
}

// Subscribe logs finished requests, operations, mutations and pages
// published on b. The returned function removes the subscriptions.
func Subscribe(b *eventbus.Bus, log logrus.FieldLogger) (unsubscribe func()) {
	entry := func(ctx context.Context) logrus.FieldLogger {
		if rid, ok := reqid.FromContext(ctx); ok {
			return log.WithField("request_id", rid)
		}
		return log
	}

	offs := []func(){
		eventbus.On(b, func(ctx context.Context, e events.HTTPFinish) {
			l := entry(ctx).WithFields(logrus.Fields{
				"method":   e.Request.Method,
				"path":     e.Request.URL.Path,
				"status":   e.Status,
				"duration": e.Duration,
			})
			if e.Status >= 500 {
				l.Error("request failed")
				return
			}
			l.Info("request")
		}),
		eventbus.On(b, func(ctx context.Context, e events.GraphQLFinish) {
			l := entry(ctx).WithFields(logrus.Fields{
				"operation": e.OperationName,
				"type":      e.OperationType,
				"errors":    len(e.Errors),
				"duration":  e.Duration,
			})
			if len(e.Errors) > 0 {
				l.WithError(e.Errors[0]).Warn("operation completed with errors")
				return
			}
			l.Debug("operation")
		}),
		eventbus.On(b, func(ctx context.Context, e events.MutationFinish) {
			l := entry(ctx).WithFields(logrus.Fields{
				"mutation": e.Mutation,
				"op":       e.Operation,
				"ok":       e.OK,
				"errors":   e.Errors,
				"duration": e.Duration,
			})
			if e.Err != nil {
				l.WithError(e.Err).Warn("mutation aborted")
				return
			}
			l.Info("mutation")
		}),
		eventbus.On(b, func(ctx context.Context, e events.ConnectionResolved) {
			entry(ctx).WithFields(logrus.Fields{
				"connection": e.Type,
				"total":      e.Total,
				"start":      e.Start,
				"end":        e.End,
				"duration":   e.Duration,
			}).Debug("page")
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
