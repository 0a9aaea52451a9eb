package gitlab

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies the outcome of a failed tool call.
type ErrorKind int

const (
	// KindUnauthorized covers 401/403: token invalid, expired, or missing scope.
	KindUnauthorized ErrorKind = iota + 1
	// KindNotFound covers 404: project or merge request missing, or IID confused with ID.
	KindNotFound
	// KindValidation covers local input errors and GitLab 400/422 responses.
	KindValidation
	// KindRateLimited covers 429. The caller owns backoff.
	KindRateLimited
	// KindServer covers 5xx.
	KindServer
	// KindTransport covers DNS, TLS, timeouts, cancellation and undecodable bodies.
	KindTransport
	// KindUnexpectedStatus is the catch-all for status codes with no mapping.
	KindUnexpectedStatus
)

// String returns the stable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationFailed"
	case KindRateLimited:
		return "RateLimited"
	case KindServer:
		return "ServerError"
	case KindTransport:
		return "TransportFailure"
	case KindUnexpectedStatus:
		return "UnexpectedStatus"
	default:
		return "Unknown"
	}
}

// Error is the classified error returned by the request builder, the position
// validator and the client adapter.
type Error struct {
	Kind ErrorKind
	// Status is the HTTP status code, zero for local and transport failures.
	Status int
	// Reason is a human readable description. For remote validation failures
	// it carries GitLab's message verbatim.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil && (e.Reason == "" || e.Kind == KindTransport) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Status == 0 || t.Status == e.Status)
}

func ErrUnauthorized(status int, reason string) *Error {
	return &Error{Kind: KindUnauthorized, Status: status, Reason: reason}
}

func ErrNotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Reason: reason}
}

// ErrValidation builds a ValidationFailed error. status is zero for failures
// caught locally before any request was sent.
func ErrValidation(status int, reason string, cause error) *Error {
	return &Error{Kind: KindValidation, Status: status, Reason: reason, Err: cause}
}

func ErrRateLimited(reason string) *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Reason: reason}
}

func ErrServer(status int, reason string) *Error {
	return &Error{Kind: KindServer, Status: status, Reason: reason}
}

func ErrTransport(reason string, cause error) *Error {
	return &Error{Kind: KindTransport, Reason: reason, Err: cause}
}

func ErrUnexpectedStatus(status int, reason string) *Error {
	return &Error{Kind: KindUnexpectedStatus, Status: status, Reason: reason}
}

// KindOf reports the kind of a classified error, or zero when err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// classifyStatus maps a non-2xx GitLab response to an *Error.
func classifyStatus(status int, body []byte) *Error {
	msg := gitlabMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			msg = "token is invalid, expired, or lacks the api scope"
		}
		return ErrUnauthorized(status, msg)
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "project or merge request not found (check that merge_request_iid is the IID, not the global ID)"
		}
		return ErrNotFound(msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return ErrValidation(status, msg, nil)
	case status == http.StatusTooManyRequests:
		if msg == "" {
			msg = "rate limit exceeded, retry later"
		}
		return ErrRateLimited(msg)
	case status >= 500 && status <= 599:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return ErrServer(status, msg)
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return ErrUnexpectedStatus(status, msg)
	}
}

// gitlabMessage extracts the error text from a GitLab error body. GitLab uses
// {"message": "..."}, {"message": {...}}, {"error": "..."} or plain text.
func gitlabMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload struct {
		Message          json.RawMessage `json:"message"`
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return trimmed
	}

	for _, raw := range []json.RawMessage{payload.Message, payload.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if payload.ErrorDescription != "" {
				return s + ": " + payload.ErrorDescription
			}
			return s
		}
		return string(raw)
	}
	return trimmed
}
