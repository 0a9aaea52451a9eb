package gitlab

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/translations"
)

// NewServer creates the MCP server with tool capabilities and the review
// workflow instructions returned on initialize.
func NewServer(name, version string, t map[string]string, opts ...server.ServerOption) *server.MCPServer {
	defaultOpts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithInstructions(translations.Translate(t, translations.SERVER_INSTRUCTIONS)),
		server.WithRecovery(),
	}
	return server.NewMCPServer(name, version, append(defaultOpts, opts...)...)
}
