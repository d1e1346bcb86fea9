package middleware

import (
	"fmt"
	"net/http"

	"github.com/florianreyes/shipba-rag/internal/telemetry"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// SentryMiddleware runs each request inside a Sentry transaction on a cloned
// hub. Panics are reported and re-raised and 5xx responses become events.
// Without an initialized client every call is a no-op.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if telemetry.IsUntraced(r) {
			next.ServeHTTP(w, r)
			return
		}

		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		opts := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			opts = append(opts, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		tx := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, opts...)
		defer tx.Finish()

		ctx := sentry.SetHubOnContext(tx.Context(), hub)
		ctx, info := withProfileInfo(ctx)
		r = r.WithContext(ctx)

		hub.Scope().SetRequest(r)
		if requestID := GetRequestID(ctx); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			tx.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(ctx, err)
				panic(err)
			}
		}()

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		// Routing happened inside next, so the pattern is only known now.
		if rctx := chi.RouteContext(ctx); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				tx.Name = r.Method + " " + pattern
				tx.Source = sentry.SourceRoute
			}
		}

		status := rec.statusCode()
		tx.Status = spanStatus(status)
		tx.SetData("http.response.status_code", status)

		if info.id != "" {
			hub.Scope().SetUser(sentry.User{ID: info.id})
			tx.SetTag("profile_id", info.id)
		}
		if status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("%s: HTTP %d", tx.Name, status))
		}
	})
}

func spanStatus(status int) sentry.SpanStatus {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return sentry.SpanStatusInvalidArgument
	case http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case http.StatusForbidden:
		return sentry.SpanStatusPermissionDenied
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusConflict:
		return sentry.SpanStatusAlreadyExists
	case http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	case http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	}
	switch {
	case status < 400:
		return sentry.SpanStatusOK
	case status < 500:
		return sentry.SpanStatusInvalidArgument
	default:
		return sentry.SpanStatusInternalError
	}
}
