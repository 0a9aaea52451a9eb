package gitlab

import (
	"net/http"
	"strings"
)

// Request is a GitLab API v4 call, built without side effects. Path is
// relative to the API base URL and already escaped.
type Request struct {
	Method string
	Path   string
	Body   any
}

// IsWrite reports whether the request may change state on the server.
func (r Request) IsWrite() bool {
	return r.Method != http.MethodGet && r.Method != http.MethodHead
}

type discussionBody struct {
	Body     string              `json:"body"`
	Position *DiscussionPosition `json:"position"`
	Resolve  *bool               `json:"resolve,omitempty"`
}

type noteBody struct {
	Body         string `json:"body"`
	Confidential *bool  `json:"confidential,omitempty"`
}

func BuildGetMergeRequest(ref MergeRequestRef) Request {
	return Request{Method: http.MethodGet, Path: ref.basePath()}
}

func BuildGetMergeRequestChanges(ref MergeRequestRef) Request {
	return Request{Method: http.MethodGet, Path: ref.basePath() + "/changes"}
}

func BuildGetMergeRequestVersions(ref MergeRequestRef) Request {
	return Request{Method: http.MethodGet, Path: ref.basePath() + "/versions"}
}

// BuildCreateDiscussion validates position and builds the POST that opens a
// positioned discussion. resolve is only sent when set. Invalid input yields
// a ValidationFailed *Error.
func BuildCreateDiscussion(ref MergeRequestRef, body string, position *DiscussionPosition, resolve *bool) (Request, error) {
	if err := validateBody(body); err != nil {
		return Request{}, err
	}
	if position == nil {
		return Request{}, ErrValidation(0, "position is required", nil)
	}
	if err := position.Validate(); err != nil {
		return Request{}, err
	}

	pos := position.normalized()
	return Request{
		Method: http.MethodPost,
		Path:   ref.basePath() + "/discussions",
		Body:   discussionBody{Body: body, Position: &pos, Resolve: resolve},
	}, nil
}

// BuildCreateNote builds the POST for a top-level note. confidential is only
// sent when set.
func BuildCreateNote(ref MergeRequestRef, body string, confidential *bool) (Request, error) {
	if err := validateBody(body); err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodPost,
		Path:   ref.basePath() + "/notes",
		Body:   noteBody{Body: body, Confidential: confidential},
	}, nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrValidation(0, "body must be a non-empty markdown string", nil)
	}
	return nil
}
