package gitlab

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/translations"
)

func withProject() mcp.ToolOption {
	return mcp.WithString("project",
		mcp.Required(),
		mcp.Description("Numeric project ID or full namespaced path such as \"group/subgroup/project\". Paths are escaped automatically."),
	)
}

func withMergeRequestIID() mcp.ToolOption {
	return mcp.WithNumber("merge_request_iid",
		mcp.Required(),
		mcp.Description("Project-scoped IID of the merge request (the number in its URL), not the global ID."),
		mcp.Min(1),
	)
}

func withBody(description string) mcp.ToolOption {
	return mcp.WithString("body",
		mcp.Required(),
		mcp.Description(description),
	)
}

// GetMergeRequest defines the get_merge_request tool.
func GetMergeRequest(getClient GetClientFn, t map[string]string) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"get_merge_request",
			mcp.WithDescription(translations.Translate(t, translations.TOOL_GET_MERGE_REQUEST_DESCRIPTION)),
			mcp.WithTitleAnnotation("Get Merge Request"),
			mcp.WithReadOnlyHintAnnotation(true),
			withProject(),
			withMergeRequestIID(),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := mergeRequestRefParam(&request)
			if err != nil {
				return validationResult(err), nil
			}

			glClient, err := getClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get GitLab client: %w", err)
			}

			mr, err := glClient.GetMergeRequest(ctx, ref)
			if err != nil {
				return HandleAPIError(err, fmt.Sprintf("merge request %s", ref))
			}
			return jsonResult(mr)
		}
}

// GetMergeRequestChanges defines the get_merge_request_changes tool.
func GetMergeRequestChanges(getClient GetClientFn, t map[string]string) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"get_merge_request_changes",
			mcp.WithDescription(translations.Translate(t, translations.TOOL_GET_MERGE_REQUEST_CHANGES_DESCRIPTION)),
			mcp.WithTitleAnnotation("Get Merge Request Changes"),
			mcp.WithReadOnlyHintAnnotation(true),
			withProject(),
			withMergeRequestIID(),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := mergeRequestRefParam(&request)
			if err != nil {
				return validationResult(err), nil
			}

			glClient, err := getClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get GitLab client: %w", err)
			}

			changes, err := glClient.GetMergeRequestChanges(ctx, ref)
			if err != nil {
				return HandleAPIError(err, fmt.Sprintf("changes of merge request %s", ref))
			}
			if changes.Changes == nil {
				changes.Changes = []*gl.MergeRequestDiff{}
			}
			return jsonResult(changes)
		}
}

// GetMergeRequestVersions defines the get_merge_request_versions tool.
func GetMergeRequestVersions(getClient GetClientFn, t map[string]string) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"get_merge_request_versions",
			mcp.WithDescription(translations.Translate(t, translations.TOOL_GET_MERGE_REQUEST_VERSIONS_DESCRIPTION)),
			mcp.WithTitleAnnotation("Get Merge Request Versions"),
			mcp.WithReadOnlyHintAnnotation(true),
			withProject(),
			withMergeRequestIID(),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := mergeRequestRefParam(&request)
			if err != nil {
				return validationResult(err), nil
			}

			glClient, err := getClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get GitLab client: %w", err)
			}

			versions, err := glClient.GetMergeRequestVersions(ctx, ref)
			if err != nil {
				return HandleAPIError(err, fmt.Sprintf("diff versions of merge request %s", ref))
			}
			if versions == nil {
				versions = []*gl.MergeRequestDiffVersion{}
			}
			return jsonResult(versions)
		}
}

var positionProperties = map[string]any{
	"base_sha":      map[string]any{"type": "string", "description": "base_commit_sha of the diff version."},
	"head_sha":      map[string]any{"type": "string", "description": "head_commit_sha of the diff version."},
	"start_sha":     map[string]any{"type": "string", "description": "start_commit_sha of the diff version."},
	"position_type": map[string]any{"type": "string", "enum": []string{"text", "image"}, "description": "Defaults to text."},
	"old_path":      map[string]any{"type": "string", "description": "File path before the change."},
	"new_path":      map[string]any{"type": "string", "description": "File path after the change."},
	"old_line":      map[string]any{"type": "integer", "description": "Line number in the old file, for removed or unchanged lines."},
	"new_line":      map[string]any{"type": "integer", "description": "Line number in the new file, for added or unchanged lines."},
	"line_range":    map[string]any{"type": "object", "description": "Optional start and end of a multi-line comment."},
}

// CreateMergeRequestDiscussion defines the create_merge_request_discussion tool.
// When the position carries no SHAs, the merge request's diff versions are
// fetched and the current one (or version_id) is used.
func CreateMergeRequestDiscussion(getClient GetClientFn, t map[string]string) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"create_merge_request_discussion",
			mcp.WithDescription(translations.Translate(t, translations.TOOL_CREATE_MERGE_REQUEST_DISCUSSION_DESCRIPTION)),
			mcp.WithTitleAnnotation("Create Merge Request Line Comment"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			withProject(),
			withMergeRequestIID(),
			withBody("Comment text in Markdown."),
			mcp.WithObject("position",
				mcp.Required(),
				mcp.Description("Diff position of the commented line. A JSON-encoded string of the same object is also accepted."),
				mcp.Properties(positionProperties),
			),
			mcp.WithNumber("version_id",
				mcp.Description("Diff version to anchor to when the position has no SHAs. Defaults to the current version."),
				mcp.Min(1),
			),
			mcp.WithBoolean("resolve",
				mcp.Description("Open the discussion as resolved. Omit to use GitLab's default."),
			),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := mergeRequestRefParam(&request)
			if err != nil {
				return validationResult(err), nil
			}

			body, err := requiredParam[string](&request, "body")
			if err != nil {
				return validationResult(err), nil
			}
			if err := validateBody(body); err != nil {
				return validationResult(err), nil
			}

			input, err := PositionFromArgument(request.GetArguments()["position"])
			if err != nil {
				return validationResult(err), nil
			}
			pos, err := input.Resolve()
			if err != nil {
				return validationResult(err), nil
			}

			versionID, err := positiveInt(&request, "version_id", false)
			if err != nil {
				return validationResult(err), nil
			}
			resolve, err := optionalBoolPtr(&request, "resolve")
			if err != nil {
				return validationResult(err), nil
			}

			if versionID != 0 && pos.HasDiffRefs() {
				return validationResult(ErrValidation(0, "version_id cannot be combined with base_sha, head_sha or start_sha in position", nil)), nil
			}

			if err := pos.Validate(); err != nil && !onlyDiffRefsMissing(pos, err) {
				return validationResult(err), nil
			}

			glClient, err := getClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get GitLab client: %w", err)
			}

			if !pos.HasDiffRefs() {
				versions, err := glClient.GetMergeRequestVersions(ctx, ref)
				if err != nil {
					return HandleAPIError(err, fmt.Sprintf("diff versions of merge request %s", ref))
				}
				version, err := SelectVersion(versions, versionID)
				if err != nil {
					return validationResult(err), nil
				}
				pos.ApplyVersion(version)
			}

			discussion, err := glClient.CreateMergeRequestDiscussion(ctx, ref, body, pos, resolve)
			if err != nil {
				return HandleAPIError(err, fmt.Sprintf("discussion on merge request %s", ref))
			}
			return jsonResult(discussion)
		}
}

// onlyDiffRefsMissing reports whether the sole problem with pos is that no
// SHA was given at all, which the versions lookup can fix.
func onlyDiffRefsMissing(pos *DiscussionPosition, err error) bool {
	if pos.HasDiffRefs() || !errors.Is(err, ErrPositionSHAMissing) {
		return false
	}
	for _, other := range []error{ErrPositionPathMissing, ErrPositionLineMissing, ErrPositionLineInvalid, ErrPositionTypeInvalid} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}

// CreateMergeRequestNote defines the create_merge_request_note tool.
func CreateMergeRequestNote(getClient GetClientFn, t map[string]string) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"create_merge_request_note",
			mcp.WithDescription(translations.Translate(t, translations.TOOL_CREATE_MERGE_REQUEST_NOTE_DESCRIPTION)),
			mcp.WithTitleAnnotation("Create Merge Request Comment"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			withProject(),
			withMergeRequestIID(),
			withBody("Comment text in Markdown."),
			mcp.WithBoolean("confidential",
				mcp.Description("Mark the note as confidential. Omit to use GitLab's default."),
			),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := mergeRequestRefParam(&request)
			if err != nil {
				return validationResult(err), nil
			}

			body, err := requiredParam[string](&request, "body")
			if err != nil {
				return validationResult(err), nil
			}

			confidential, err := optionalBoolPtr(&request, "confidential")
			if err != nil {
				return validationResult(err), nil
			}

			if err := validateBody(body); err != nil {
				return validationResult(err), nil
			}

			glClient, err := getClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get GitLab client: %w", err)
			}

			note, err := glClient.CreateMergeRequestNote(ctx, ref, body, confidential)
			if err != nil {
				return HandleAPIError(err, fmt.Sprintf("note on merge request %s", ref))
			}
			return jsonResult(note)
		}
}
