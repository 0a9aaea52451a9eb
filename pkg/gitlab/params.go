package gitlab

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// requiredParam fetches a parameter from the request and checks that it is
// present, of type T, and not the zero value.
func requiredParam[T comparable](r *mcp.CallToolRequest, p string) (T, error) {
	var zero T
	args := r.GetArguments()

	raw, ok := args[p]
	if !ok || raw == nil {
		return zero, fmt.Errorf("missing required parameter: %s", p)
	}

	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("parameter %s is not of expected type %T, got %T", p, zero, raw)
	}

	if v == zero {
		return zero, fmt.Errorf("parameter %s cannot be empty or zero value", p)
	}
	return v, nil
}

// OptionalParam fetches an optional parameter. A missing parameter yields the
// zero value and no error; a present one must be of type T.
func OptionalParam[T any](r *mcp.CallToolRequest, p string) (T, error) {
	var zero T
	args := r.GetArguments()

	raw, ok := args[p]
	if !ok || raw == nil {
		return zero, nil
	}

	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("parameter %s is not of expected type %T, got %T", p, zero, raw)
	}
	return v, nil
}

// optionalBoolPtr returns nil when the parameter is absent, so callers can
// tell "not set" from false.
func optionalBoolPtr(r *mcp.CallToolRequest, p string) (*bool, error) {
	raw, ok := r.GetArguments()[p]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		return &v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("parameter %s must be a boolean, got %q", p, v)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("parameter %s is not of expected type bool, got %T", p, raw)
	}
}

// positiveInt reads a JSON number (or a string of digits) that must be a
// positive integer. required controls whether absence is an error.
func positiveInt(r *mcp.CallToolRequest, p string, required bool) (int64, error) {
	raw, ok := r.GetArguments()[p]
	if !ok || raw == nil {
		if required {
			return 0, fmt.Errorf("missing required parameter: %s", p)
		}
		return 0, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s %v is not a valid integer", p, v)
		}
		if v < 1 || v > math.MaxInt64 {
			return 0, fmt.Errorf("%s %v must be a positive integer", p, v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s %q is not a valid integer", p, v)
		}
		if n < 1 {
			return 0, fmt.Errorf("%s %d must be a positive integer", p, n)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %s is not of expected type number, got %T", p, raw)
	}
}

// mergeRequestRefParam reads the project and merge_request_iid parameters
// shared by every tool.
func mergeRequestRefParam(r *mcp.CallToolRequest) (MergeRequestRef, error) {
	rawProject, ok := r.GetArguments()["project"]
	if !ok || rawProject == nil {
		return MergeRequestRef{}, ErrValidation(0, "missing required parameter: project", nil)
	}
	project, err := ParseProjectRef(rawProject)
	if err != nil {
		return MergeRequestRef{}, err
	}

	iid, err := positiveInt(r, "merge_request_iid", true)
	if err != nil {
		return MergeRequestRef{}, ErrValidation(0, err.Error(), nil)
	}
	return NewMergeRequestRef(project, iid)
}
