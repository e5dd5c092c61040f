// Package requestctx stores request-scoped values shared by middleware,
// handlers, and services.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyTrace
	keyRequestID
)

var nop = zap.NewNop()

// TraceInfo is the Cloud Trace metadata for the current request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func base(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithLogger attaches logger. A nil logger stores a no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return context.WithValue(base(ctx), keyLogger, logger)
}

// Logger returns the request logger, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nop
}

// WithTrace attaches trace metadata.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(base(ctx), keyTrace, info)
}

// Trace returns the trace metadata when present.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(keyTrace).(TraceInfo)
	return info, ok
}

// TraceID returns the trace id, or "".
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithRequestID attaches the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(base(ctx), keyRequestID, id)
}

// RequestID returns the request id, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}
