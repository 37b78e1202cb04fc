package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	CodeSpawnFailed      ErrorCode = "SPAWN_FAILED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeUnknownGroup     ErrorCode = "UNKNOWN_GROUP"
	CodeUnknownProfile   ErrorCode = "UNKNOWN_PROFILE"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	CodeCanceled         ErrorCode = "CANCELED"
	CodeInternal         ErrorCode = "INTERNAL"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrSpawnFailed      = errors.New("spawn failed")
	ErrTimeout          = errors.New("execution timed out")
	ErrUnknownGroup     = errors.New("unknown group")
	ErrUnknownProfile   = errors.New("unknown profile")
	ErrUnknownProcedure = errors.New("unknown procedure")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrExecutableNotFound = errors.New("executable not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrPathIgnored        = errors.New("path is excluded by ignore rules")
)

// Error carries a classified failure through the execution pipeline.
// Code is stable across releases; Message and Cause are for humans.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	Meta    map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is the sentinel for the error's code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := sentinelForCode(e.Code)
	return ok && target == sentinel
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
			Meta:    existing.Meta,
		}
	}
	return E(code, op, "", err)
}

// WithMeta returns a copy of e with key set in its metadata.
func (e *Error) WithMeta(key, value string) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.Meta = make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		out.Meta[k] = v
	}
	out.Meta[key] = value
	return &out
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrPathIgnored), errors.Is(err, ErrUnknownProcedure):
		return CodeInvalidRequest, true
	case errors.Is(err, ErrSpawnFailed), errors.Is(err, ErrExecutableNotFound), errors.Is(err, ErrPermissionDenied):
		return CodeSpawnFailed, true
	case errors.Is(err, ErrTimeout):
		return CodeTimeout, true
	case errors.Is(err, ErrUnknownGroup):
		return CodeUnknownGroup, true
	case errors.Is(err, ErrUnknownProfile):
		return CodeUnknownProfile, true
	case errors.Is(err, ErrNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable, true
	case errors.Is(err, context.Canceled):
		return CodeCanceled, true
	default:
		return "", false
	}
}

func sentinelForCode(code ErrorCode) (error, bool) {
	switch code {
	case CodeInvalidRequest:
		return ErrInvalidRequest, true
	case CodeSpawnFailed:
		return ErrSpawnFailed, true
	case CodeTimeout:
		return ErrTimeout, true
	case CodeUnknownGroup:
		return ErrUnknownGroup, true
	case CodeUnknownProfile:
		return ErrUnknownProfile, true
	case CodeNotFound:
		return ErrNotFound, true
	case CodeStoreUnavailable:
		return ErrStoreUnavailable, true
	default:
		return nil, false
	}
}
