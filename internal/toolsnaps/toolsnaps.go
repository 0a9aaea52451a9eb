// Package toolsnaps keeps JSON snapshots of MCP tool schemas so that a change
// to a tool's name, description or parameters shows up as a test failure.
package toolsnaps

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/josephburnett/jd/v2"
)

const snapDir = "__toolsnaps__"

// Test compares the JSON form of tool with __toolsnaps__/<name>.snap.
//
// A missing snapshot is written, except in CI (GITHUB_ACTIONS=true) when the
// snapshot directory does not exist either. UPDATE_TOOLSNAPS=true rewrites
// the snapshot unconditionally.
func Test(toolName string, tool any) error {
	toolJSON, err := json.MarshalIndent(tool, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tool %s: %w", toolName, err)
	}

	snapPath := filepath.Join(snapDir, toolName+".snap")

	if os.Getenv("UPDATE_TOOLSNAPS") == "true" {
		return writeSnap(snapPath, toolJSON)
	}

	snapJSON, err := os.ReadFile(snapPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if os.Getenv("GITHUB_ACTIONS") == "true" && !dirExists(snapDir) {
			return fmt.Errorf("tool snapshot does not exist for %s. Please run the tests with UPDATE_TOOLSNAPS=true to create it", toolName)
		}
		return writeSnap(snapPath, toolJSON)
	case err != nil:
		return fmt.Errorf("failed to read snapshot file for %s: %w", toolName, err)
	}

	toolNode, err := jd.ReadJsonString(string(toolJSON))
	if err != nil {
		return fmt.Errorf("failed to parse tool JSON for %s: %w", toolName, err)
	}
	snapNode, err := jd.ReadJsonString(string(snapJSON))
	if err != nil {
		return fmt.Errorf("failed to parse snapshot JSON for %s: %w", toolName, err)
	}

	// SET compares arrays ignoring order, e.g. the "required" list.
	if diff := snapNode.Diff(toolNode, jd.SET).Render(); diff != "" {
		return fmt.Errorf("tool schema for %s has changed unexpectedly:\n%s\nrun with UPDATE_TOOLSNAPS=true if the change is intended", toolName, diff)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func writeSnap(snapPath string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(snapPath), 0o700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(snapPath, contents, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}
