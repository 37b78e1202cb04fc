package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type requestContextKey struct{}

// RequestMeta identifies one procedure call for log correlation.
type RequestMeta struct {
	RequestID string
	SessionID string
	Procedure string
	TraceID   string
	SpanID    string
}

func (m RequestMeta) IsZero() bool {
	return m.RequestID == "" && m.SessionID == "" && m.TraceID == "" && m.SpanID == ""
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if meta.IsZero() {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestContextKey{}).(RequestMeta)
	return meta, ok && !meta.IsZero()
}

func NewRequestID() string {
	return uuid.NewString()
}

func TraceSpanFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

// StartRequest attaches request metadata for a procedure call, reusing a
// request id already present on ctx.
func StartRequest(ctx context.Context, sessionID, procedure string) (context.Context, RequestMeta) {
	requestID := ""
	if existing, ok := RequestMetaFromContext(ctx); ok {
		requestID = existing.RequestID
	}
	if requestID == "" {
		requestID = NewRequestID()
	}
	traceID, spanID := TraceSpanFromContext(ctx)
	meta := RequestMeta{
		RequestID: requestID,
		SessionID: sessionID,
		Procedure: procedure,
		TraceID:   traceID,
		SpanID:    spanID,
	}
	return WithRequestMeta(ctx, meta), meta
}

func RequestFields(meta RequestMeta) []zap.Field {
	if meta.IsZero() {
		return nil
	}
	fields := make([]zap.Field, 0, 5)
	if meta.RequestID != "" {
		fields = append(fields, RequestIDField(meta.RequestID))
	}
	if meta.SessionID != "" {
		fields = append(fields, SessionIDField(meta.SessionID))
	}
	if meta.Procedure != "" {
		fields = append(fields, ProcedureField(meta.Procedure))
	}
	if meta.TraceID != "" {
		fields = append(fields, TraceIDField(meta.TraceID))
	}
	if meta.SpanID != "" {
		fields = append(fields, SpanIDField(meta.SpanID))
	}
	return fields
}

func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, ok := RequestMetaFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(RequestFields(meta)...)
}
