package gitlab

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// HandleAPIError converts an error from the request builder, the validator or
// the client into the tool result shown to the model.
// Returns:
//   - (*mcp.CallToolResult, nil) for classified errors, which the caller can act on
//   - (nil, error) for anything else, propagated as an internal error
//   - (nil, nil) if err is nil
func HandleAPIError(err error, resourceDescription string) (*mcp.CallToolResult, error) {
	if err == nil {
		return nil, nil
	}

	var e *Error
	if !errors.As(err, &e) {
		return nil, fmt.Errorf("failed to process %s: %w", resourceDescription, err)
	}

	msg := fmt.Sprintf("%s: %s", resourceDescription, e.Error())
	switch e.Kind {
	case KindUnauthorized:
		msg += ". Check that the GitLab token is valid and has the api scope."
	case KindNotFound:
		msg += ". Check the project path or ID and that merge_request_iid is the IID shown in the URL."
	case KindRateLimited:
		msg += ". Wait before calling again."
	}
	return mcp.NewToolResultError(msg), nil
}

// validationResult formats a local input error the way the handlers report
// bad parameters.
func validationResult(err error) *mcp.CallToolResult {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindValidation {
		return mcp.NewToolResultError(fmt.Sprintf("Validation Error: %s", e.Reason))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Validation Error: %v", err))
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
