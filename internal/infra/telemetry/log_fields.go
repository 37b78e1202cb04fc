package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldProcedure  = "procedure"
	FieldGroup      = "group"
	FieldProfile    = "profile"
	FieldSessionID  = "session_id"
	FieldExitCode   = "exit_code"
	FieldDurationMs = "duration_ms"
	FieldLogSource  = "log_source"
	FieldLogStream  = "stream"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventExecStart       = "exec_start"
	EventExecFinish      = "exec_finish"
	EventExecTimeout     = "exec_timeout"
	EventSpawnFailure    = "spawn_failure"
	EventNormalizeFailed = "normalize_failed"
	EventCacheHit        = "cache_hit"
	EventGroupEnabled    = "group_enabled"
	EventGroupDisabled   = "group_disabled"
	EventConfigReload    = "config_reload"
)

const (
	LogSourceCore       = "core"
	LogSourceSubprocess = "subprocess"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func ProcedureField(name string) zap.Field {
	return zap.String(FieldProcedure, name)
}

func GroupField(group string) zap.Field {
	return zap.String(FieldGroup, group)
}

func ProfileField(profile string) zap.Field {
	return zap.String(FieldProfile, profile)
}

func SessionIDField(id string) zap.Field {
	return zap.String(FieldSessionID, id)
}

func ExitCodeField(code int) zap.Field {
	return zap.Int(FieldExitCode, code)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
