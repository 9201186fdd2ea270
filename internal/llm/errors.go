package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindStatus      Kind = "status"
	KindConnection  Kind = "connection"
	KindInvalidJSON Kind = "invalid_json"
	KindEmpty       Kind = "empty"
	KindOther       Kind = "other"
)

// Error is returned by every failed API call.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("llm: status %d: %s", e.StatusCode, e.Body)
	case KindEmpty:
		return "llm: empty response"
	}
	if e.Err != nil {
		return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("llm: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Display renders the short status shown to administrators.
func (e *Error) Display() string {
	switch e.Kind {
	case KindTimeout:
		return "Error: timeout"
	case KindStatus:
		return fmt.Sprintf("Error: %d", e.StatusCode)
	case KindConnection:
		return "Connection Error"
	case KindInvalidJSON:
		return "Invalid JSON"
	case KindEmpty:
		return "Error: empty response"
	}
	detail := "unknown"
	if e.Err != nil {
		detail = e.Err.Error()
	}
	return "Error: " + truncate(detail, 50)
}

func Display(err error) string {
	if err == nil {
		return "OK"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Display()
	}
	return "Error: " + truncate(err.Error(), 50)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindOther, Err: err}
	}
	return &Error{Kind: KindConnection, Err: err}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
