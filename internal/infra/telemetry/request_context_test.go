package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestStartRequestGeneratesID(t *testing.T) {
	ctx, meta := StartRequest(context.Background(), "sess-1", "fs_list")
	require.NotEmpty(t, meta.RequestID)
	require.Equal(t, "sess-1", meta.SessionID)

	got, ok := RequestMetaFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, meta, got)
}

func TestStartRequestReusesExistingID(t *testing.T) {
	ctx := WithRequestMeta(context.Background(), RequestMeta{RequestID: "req-123"})
	_, meta := StartRequest(ctx, "", "git_status")
	require.Equal(t, "req-123", meta.RequestID)
	require.Equal(t, "git_status", meta.Procedure)
}

func TestTraceSpanFromContext(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0123456789abcdef")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	_, meta := StartRequest(ctx, "", "")
	require.Equal(t, traceID.String(), meta.TraceID)
	require.Equal(t, spanID.String(), meta.SpanID)
}

func TestRequestFields(t *testing.T) {
	fields := RequestFields(RequestMeta{
		RequestID: "req-1",
		SessionID: "sess-1",
		TraceID:   "trace-1",
	})
	require.Len(t, fields, 3)
	require.Equal(t, FieldRequestID, fields[0].Key)
	require.Equal(t, FieldSessionID, fields[1].Key)
	require.Equal(t, FieldTraceID, fields[2].Key)
}

func TestRequestFieldsEmpty(t *testing.T) {
	require.Nil(t, RequestFields(RequestMeta{}))
}
