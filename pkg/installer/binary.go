package installer

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	BinaryName  = "gitlab-mr-review-mcp"
	DockerImage = "gitlab-mr-review-mcp:latest"
)

// BinaryConfig describes how an MCP client starts the server.
type BinaryConfig struct {
	Mode      string // "local" or "docker"
	LocalPath string
	Command   string
	Args      []string
}

// GetBinaryConfig returns the launch command for mode. Local mode requires
// a built binary under <projectRoot>/bin.
func GetBinaryConfig(mode string, projectRoot string) (*BinaryConfig, error) {
	switch mode {
	case "docker":
		return &BinaryConfig{
			Mode:    mode,
			Command: "docker",
			Args:    []string{"run", "-i", "--rm"},
		}, nil

	case "local", "":
		localPath := filepath.Join(projectRoot, "bin", BinaryName)
		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("binary not found at %s. Please run 'make build' first", localPath)
		}
		absPath, err := filepath.Abs(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		return &BinaryConfig{
			Mode:      "local",
			LocalPath: absPath,
			Command:   absPath,
			Args:      []string{"stdio"},
		}, nil

	default:
		return nil, fmt.Errorf("invalid mode: %s", mode)
	}
}
