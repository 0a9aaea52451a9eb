package gitlab

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// ProjectRef identifies a project either by numeric ID or by its full
// namespaced path. The zero value is invalid; use ParseProjectRef.
type ProjectRef struct {
	id   int64
	path string
}

// ParseProjectRef accepts a positive integer (as a JSON number or a string of
// digits) or a namespaced path such as "group/subgroup/project".
func ParseProjectRef(v any) (ProjectRef, error) {
	switch val := v.(type) {
	case nil:
		return ProjectRef{}, ErrValidation(0, "project is required", nil)
	case float64:
		if val != math.Trunc(val) || val < 1 || val > math.MaxInt64 {
			return ProjectRef{}, ErrValidation(0, fmt.Sprintf("project ID %v is not a positive integer", val), nil)
		}
		return ProjectRef{id: int64(val)}, nil
	case int:
		return projectIDRef(int64(val))
	case int64:
		return projectIDRef(val)
	case string:
		return parseProjectString(val)
	default:
		return ProjectRef{}, ErrValidation(0, fmt.Sprintf("project must be an ID or a path, got %T", v), nil)
	}
}

func projectIDRef(id int64) (ProjectRef, error) {
	if id < 1 {
		return ProjectRef{}, ErrValidation(0, fmt.Sprintf("project ID %d is not a positive integer", id), nil)
	}
	return ProjectRef{id: id}, nil
}

func parseProjectString(s string) (ProjectRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ProjectRef{}, ErrValidation(0, "project is required", nil)
	}

	if isDigits(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ProjectRef{}, ErrValidation(0, fmt.Sprintf("project ID %q is out of range", s), err)
		}
		return projectIDRef(id)
	}

	// Callers sometimes pass a path that is already escaped.
	if strings.Contains(s, "%") {
		unescaped, err := url.PathUnescape(s)
		if err != nil {
			return ProjectRef{}, ErrValidation(0, fmt.Sprintf("project path %q is not valid", s), err)
		}
		s = unescaped
	}

	for _, segment := range strings.Split(s, "/") {
		if segment == "" {
			return ProjectRef{}, ErrValidation(0, fmt.Sprintf("project path %q has an empty segment", s), nil)
		}
	}
	return ProjectRef{path: s}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// IsZero reports whether the ref was never parsed.
func (p ProjectRef) IsZero() bool {
	return p.id == 0 && p.path == ""
}

// String returns the ID or the unescaped path.
func (p ProjectRef) String() string {
	if p.path != "" {
		return p.path
	}
	return strconv.FormatInt(p.id, 10)
}

// PathSegment returns the ref as a single escaped URL path segment.
// Numeric IDs pass through; paths have "/" escaped as %2F and "." as %2E.
func (p ProjectRef) PathSegment() string {
	if p.path != "" {
		return gl.PathEscape(p.path)
	}
	return strconv.FormatInt(p.id, 10)
}

// MergeRequestRef addresses a merge request by project and project-scoped IID.
type MergeRequestRef struct {
	Project ProjectRef
	IID     int64
}

// NewMergeRequestRef validates the IID and pairs it with a parsed project.
func NewMergeRequestRef(project ProjectRef, iid int64) (MergeRequestRef, error) {
	if project.IsZero() {
		return MergeRequestRef{}, ErrValidation(0, "project is required", nil)
	}
	if iid < 1 {
		return MergeRequestRef{}, ErrValidation(0, fmt.Sprintf("merge_request_iid %d is not a positive integer", iid), nil)
	}
	return MergeRequestRef{Project: project, IID: iid}, nil
}

func (r MergeRequestRef) String() string {
	return fmt.Sprintf("%s!%d", r.Project, r.IID)
}

func (r MergeRequestRef) basePath() string {
	return fmt.Sprintf("projects/%s/merge_requests/%d", r.Project.PathSegment(), r.IID)
}
