// Package telemetry wraps Sentry for the shipba server: client setup, spans
// around indexing and search, and error capture. Every function is safe to
// call when Sentry was never initialized.
package telemetry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const (
	serverName   = "shipbad"
	flushTimeout = 5 * time.Second
)

// Paths polled by load balancers; never traced.
var untracedPaths = map[string]bool{"/health": true}

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
	Logger           *zap.Logger
}

// Init configures the global Sentry client and returns a flush function for
// shutdown. A failed init is logged and leaves Sentry disabled.
func Init(cfg Config) (func(), error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		ServerName:       serverName,
		Debug:            cfg.Debug,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
		return noop, nil
	}

	logger.Info("sentry enabled",
		zap.String("environment", cfg.Environment),
		zap.Float64("traces_sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops health checks and keeps child spans consistent with their
// parent's decision.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return rate
		}
		if ctx.Span.ParentSpanID != (sentry.SpanID{}) {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		if _, path, ok := strings.Cut(ctx.Span.Name, " "); ok && untracedPaths[path] {
			return 0
		}
		return rate
	}
}

// scrubEvent strips API keys from captured requests.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for name := range event.Request.Headers {
		if strings.EqualFold(name, "Authorization") || strings.EqualFold(name, "Cookie") {
			event.Request.Headers[name] = "[redacted]"
		}
	}
	return event
}

// SpanAttributes are the tags shared by indexing and search spans.
type SpanAttributes struct {
	WorkspaceID string
	ProfileID   string
	Operation   string
	SearchMode  string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	tags := map[string]string{
		"workspace_id": a.WorkspaceID,
		"profile_id":   a.ProfileID,
		"search_mode":  a.SearchMode,
	}
	for k, v := range tags {
		if v != "" {
			span.SetTag(k, v)
		}
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s != nil && s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span in ctx, or a new transaction when ctx
// carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hubFor(ctx).CaptureException(err)
}

// AddBreadcrumb records a degraded-but-handled step, like a fallback.
func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelWarning,
		Timestamp: time.Now(),
	}, nil)
}

// IsUntraced reports whether r targets a path excluded from tracing.
func IsUntraced(r *http.Request) bool {
	return untracedPaths[r.URL.Path]
}
