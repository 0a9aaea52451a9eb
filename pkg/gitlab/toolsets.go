package gitlab

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/toolsets"
	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/translations"
)

// GetClientFn returns the GitLab session tool handlers run against.
type GetClientFn func(context.Context) (MergeRequestAPI, error)

// DefaultTools defines the list of toolsets enabled by default.
var DefaultTools = []string{"all"}

// InitToolsets builds the ToolsetGroup and enables the requested toolsets.
// In read-only mode the comment-creating tools are not registered.
func InitToolsets(
	enabledToolsets []string,
	readOnly bool,
	getClient GetClientFn,
	logger *log.Logger,
	t map[string]string,
) (*toolsets.ToolsetGroup, error) {
	tg := toolsets.NewToolsetGroup(readOnly)

	mergeRequestsTS := toolsets.NewToolset("merge_requests", translations.Translate(t, translations.TOOLSET_MERGE_REQUESTS_DESCRIPTION))
	mergeRequestsTS.AddReadTools(
		toolsets.NewServerTool(GetMergeRequest(getClient, t)),
		toolsets.NewServerTool(GetMergeRequestChanges(getClient, t)),
		toolsets.NewServerTool(GetMergeRequestVersions(getClient, t)),
	)
	mergeRequestsTS.AddWriteTools(
		toolsets.NewServerTool(CreateMergeRequestDiscussion(getClient, t)),
		toolsets.NewServerTool(CreateMergeRequestNote(getClient, t)),
	)
	tg.AddToolset(mergeRequestsTS)

	if err := tg.EnableToolsets(enabledToolsets); err != nil {
		return nil, err
	}

	if readOnly && logger != nil {
		logger.Info("Read-only mode: comment tools are not registered")
	}
	return tg, nil
}
