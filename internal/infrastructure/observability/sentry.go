// Package observability reports unexpected errors to Sentry.
package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures error reporting. An empty DSN disables it.
type SentryOptions struct {
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	FlushTimeout     time.Duration
	BeforeSend       func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// InitSentry initializes the global Sentry client and returns a flush function
// to defer at shutdown.
func InitSentry(opts SentryOptions) (func(), error) {
	if opts.DSN == "" {
		return func() {}, nil
	}
	if opts.FlushTimeout == 0 {
		opts.FlushTimeout = 2 * time.Second
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		SampleRate:       opts.SampleRate,
		TracesSampleRate: opts.TracesSampleRate,
		EnableTracing:    opts.TracesSampleRate > 0,
		BeforeSend:       opts.BeforeSend,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(opts.FlushTimeout) }, nil
}

// CaptureErr reports err on the current hub.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureErrWithTags reports err on the hub bound to ctx, falling back to the
// current hub, with tags set on an isolated scope.
func CaptureErrWithTags(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			if v != "" {
				scope.SetTag(k, v)
			}
		}
		hub.CaptureException(err)
	})
}

// Enabled reports whether a Sentry client is configured.
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}
