package installer

import (
	"sort"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/gitlab"
)

// ServerConfig is one server entry of an MCP client configuration.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Type    string            `json:"type,omitempty"` // Claude Code only
}

// CreateServerConfig builds the client entry. The token is left out when it
// is kept in the OS keyring. In docker mode every variable is forwarded with
// -e before the image name.
func CreateServerConfig(bc *BinaryConfig, pc *PromptConfig) ServerConfig {
	env := map[string]string{
		"GITLAB_URL": pc.GitLabURL,
	}
	if !pc.StoreInKeyring {
		env["GITLAB_TOKEN"] = pc.Token
	}
	if pc.TokenType != "" && pc.TokenType != gitlab.TokenTypePrivate {
		env["GITLAB_TOKEN_TYPE"] = string(pc.TokenType)
	}
	if pc.ReadOnly {
		env["GITLAB_READ_ONLY"] = "true"
	}

	args := append([]string(nil), bc.Args...)
	if bc.Mode == "docker" {
		names := make([]string, 0, len(env))
		for name := range env {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			args = append(args, "-e", name)
		}
		args = append(args, DockerImage, "stdio")
	}

	return ServerConfig{
		Command: bc.Command,
		Args:    args,
		Env:     env,
	}
}
