package installer

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigPaths holds the MCP configuration file of each supported client.
type ConfigPaths struct {
	VSCodeUserSettings string
	VSCodeWorkspace    string
	ClaudeDesktop      string
	ClaudeCode         string
	Cursor             string
}

// GetConfigPaths returns the paths for the current platform.
func GetConfigPaths() *ConfigPaths {
	home, _ := os.UserHomeDir()
	return configPathsFor(runtime.GOOS, home, os.Getenv("APPDATA"))
}

func configPathsFor(goos, home, appData string) *ConfigPaths {
	paths := &ConfigPaths{
		ClaudeCode:      filepath.Join(home, ".claude.json"),
		VSCodeWorkspace: filepath.Join(".vscode", "mcp.json"),
	}

	switch goos {
	case "windows":
		paths.VSCodeUserSettings = filepath.Join(appData, "Code", "User", "settings.json")
		paths.ClaudeDesktop = filepath.Join(appData, "Claude", "claude_desktop_config.json")
		paths.Cursor = filepath.Join(appData, "Cursor", "mcp.json")
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		paths.VSCodeUserSettings = filepath.Join(support, "Code", "User", "settings.json")
		paths.ClaudeDesktop = filepath.Join(support, "Claude", "claude_desktop_config.json")
		paths.Cursor = filepath.Join(home, ".cursor", "mcp.json")
	default:
		paths.VSCodeUserSettings = filepath.Join(home, ".config", "Code", "User", "settings.json")
		paths.ClaudeDesktop = filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
		paths.Cursor = filepath.Join(home, ".cursor", "mcp.json")
	}
	return paths
}

// GetProjectRoot walks up from the working directory to the first directory
// holding a go.mod. It returns the working directory when there is none.
func GetProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			return wd, nil
		}
	}
}
