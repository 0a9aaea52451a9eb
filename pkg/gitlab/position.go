package gitlab

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// PositionType is the kind of diff a discussion is anchored to.
type PositionType string

const (
	PositionTypeText  PositionType = "text"
	PositionTypeImage PositionType = "image"
)

// Rules enforced by DiscussionPosition.Validate. A rejected position wraps
// every rule it violates, so errors.Is works for each of them.
var (
	ErrPositionSHAMissing  = errors.New("base_sha, head_sha and start_sha are all required (take them from the first entry of get_merge_request_versions)")
	ErrPositionPathMissing = errors.New("at least one of old_path or new_path is required")
	ErrPositionLineMissing = errors.New("at least one of old_line (removed or unchanged line) or new_line (added or unchanged line) is required")
	ErrPositionLineInvalid = errors.New("old_line and new_line must be positive line numbers")
	ErrPositionTypeInvalid = errors.New(`position_type must be "text" or "image"`)
)

// LinePosition is one end of a multi-line range.
type LinePosition struct {
	LineCode string `json:"line_code,omitempty"`
	Type     string `json:"type,omitempty"`
	OldLine  *int   `json:"old_line,omitempty"`
	NewLine  *int   `json:"new_line,omitempty"`
}

// LineRange anchors a discussion to several consecutive lines.
type LineRange struct {
	Start *LinePosition `json:"start,omitempty"`
	End   *LinePosition `json:"end,omitempty"`
}

// DiscussionPosition is GitLab's diff position for line-level discussions.
type DiscussionPosition struct {
	BaseSHA      string       `json:"base_sha"`
	HeadSHA      string       `json:"head_sha"`
	StartSHA     string       `json:"start_sha"`
	PositionType PositionType `json:"position_type,omitempty"`
	OldPath      string       `json:"old_path,omitempty"`
	NewPath      string       `json:"new_path,omitempty"`
	OldLine      *int         `json:"old_line,omitempty"`
	NewLine      *int         `json:"new_line,omitempty"`
	LineRange    *LineRange   `json:"line_range,omitempty"`

	// Image diffs only.
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
}

// HasDiffRefs reports whether any of the three commit SHAs was supplied.
func (p *DiscussionPosition) HasDiffRefs() bool {
	return strings.TrimSpace(p.BaseSHA) != "" ||
		strings.TrimSpace(p.HeadSHA) != "" ||
		strings.TrimSpace(p.StartSHA) != ""
}

// ApplyVersion copies the SHA triple of v into the position.
func (p *DiscussionPosition) ApplyVersion(v *gl.MergeRequestDiffVersion) {
	p.BaseSHA = v.BaseCommitSHA
	p.HeadSHA = v.HeadCommitSHA
	p.StartSHA = v.StartCommitSHA
}

// Validate enforces GitLab's structural rules for a discussion position.
// It returns nil or a ValidationFailed *Error.
func (p *DiscussionPosition) Validate() error {
	var violations []error

	if strings.TrimSpace(p.BaseSHA) == "" ||
		strings.TrimSpace(p.HeadSHA) == "" ||
		strings.TrimSpace(p.StartSHA) == "" {
		violations = append(violations, ErrPositionSHAMissing)
	}

	if strings.TrimSpace(p.OldPath) == "" && strings.TrimSpace(p.NewPath) == "" {
		violations = append(violations, ErrPositionPathMissing)
	}

	switch {
	case p.OldLine == nil && p.NewLine == nil:
		violations = append(violations, ErrPositionLineMissing)
	case (p.OldLine != nil && *p.OldLine < 1) || (p.NewLine != nil && *p.NewLine < 1):
		violations = append(violations, ErrPositionLineInvalid)
	}

	switch p.PositionType {
	case "", PositionTypeText, PositionTypeImage:
	default:
		violations = append(violations, ErrPositionTypeInvalid)
	}

	if len(violations) == 0 {
		return nil
	}

	reasons := make([]string, len(violations))
	for i, v := range violations {
		reasons[i] = v.Error()
	}
	return ErrValidation(0, "invalid position: "+strings.Join(reasons, "; "), errors.Join(violations...))
}

// normalized returns a copy ready to be sent: position_type defaulted to
// text, and a missing path filled from the other side, since GitLab expects
// old_path == new_path for files that were only added or only removed.
func (p DiscussionPosition) normalized() DiscussionPosition {
	if p.PositionType == "" {
		p.PositionType = PositionTypeText
	}
	p.OldPath = strings.TrimSpace(p.OldPath)
	p.NewPath = strings.TrimSpace(p.NewPath)
	if p.OldPath == "" {
		p.OldPath = p.NewPath
	}
	if p.NewPath == "" {
		p.NewPath = p.OldPath
	}
	return p
}

type positionShape int

const (
	positionObject positionShape = iota + 1
	positionString
)

// PositionInput is a diff position as received from a tool call: either a
// JSON object or a string holding the JSON encoding of that object.
type PositionInput struct {
	shape  positionShape
	object map[string]any
	raw    string
}

// PositionFromObject wraps an already decoded JSON object.
func PositionFromObject(obj map[string]any) PositionInput {
	return PositionInput{shape: positionObject, object: obj}
}

// PositionFromString wraps a JSON-encoded position.
func PositionFromString(s string) PositionInput {
	return PositionInput{shape: positionString, raw: s}
}

// PositionFromArgument classifies a raw tool argument.
func PositionFromArgument(v any) (PositionInput, error) {
	switch val := v.(type) {
	case map[string]any:
		return PositionFromObject(val), nil
	case string:
		return PositionFromString(val), nil
	case nil:
		return PositionInput{}, ErrValidation(0, "position is required", nil)
	default:
		return PositionInput{}, ErrValidation(0, fmt.Sprintf("position must be a JSON object or a JSON string, got %T", v), nil)
	}
}

// Resolve converts the input to its canonical structured form. Both shapes go
// through the same object decoding, so they are accepted and rejected alike.
// Resolve does not validate.
func (in PositionInput) Resolve() (*DiscussionPosition, error) {
	var obj map[string]any
	switch in.shape {
	case positionObject:
		obj = in.object
	case positionString:
		decoded, err := decodePositionString(in.raw)
		if err != nil {
			return nil, err
		}
		obj = decoded
	default:
		return nil, ErrValidation(0, "position is required", nil)
	}
	if obj == nil {
		return nil, ErrValidation(0, "position is required", nil)
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, ErrValidation(0, "position could not be encoded", err)
	}

	var pos DiscussionPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, ErrValidation(0, "position is not a valid GitLab diff position: "+err.Error(), err)
	}
	return &pos, nil
}

// decodePositionString accepts a JSON object encoded once, or encoded twice
// (a JSON string whose content is the object).
func decodePositionString(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrValidation(0, "position is required", nil)
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, ErrValidation(0, "position string is not valid JSON: "+err.Error(), err)
	}
	if inner, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(inner), &v); err != nil {
			return nil, ErrValidation(0, "position string is not valid JSON: "+err.Error(), err)
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrValidation(0, fmt.Sprintf("position must encode a JSON object, got %T", v), nil)
	}
	return obj, nil
}
