package translations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const (
	configFileName = "gitlab-mr-review-mcp-config.json"
)

// TranslationHelper loads translations from config file
func TranslationHelper(logger *log.Logger) (map[string]string, func()) {
	translations := make(map[string]string)

	// Find config file next to binary
	execPath, err := os.Executable()
	if err != nil {
		logger.Debugf("Could not locate binary path for translations: %v", err)
		return translations, func() {}
	}

	configPath := filepath.Join(filepath.Dir(execPath), configFileName)

	// Load config if exists
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, &translations); err != nil {
			logger.Warnf("Failed to parse translation config: %v", err)
		} else {
			logger.Infof("Loaded %d translations from %s", len(translations), configPath)
		}
	}

	// Return function to dump translations
	dumpTranslations = func() {
		dumpAllTranslations(logger, configPath)
	}

	return translations, dumpTranslations
}

// Translate returns the configured text for key, then the built-in English
// default, then the key itself.
func Translate(translations map[string]string, key string) string {
	if translated, ok := translations[key]; ok {
		return translated
	}
	if def, ok := defaults[key]; ok {
		return def
	}
	return key
}

var defaults = getAllTranslationKeys()

// dumpTranslations is assigned by TranslationHelper
var dumpTranslations func()

// dumpAllTranslations generates template with all translation keys
func dumpAllTranslations(logger *log.Logger, configPath string) {
	// Collect all keys
	allKeys := getAllTranslationKeys()

	// Merge with existing config
	existing := make(map[string]string)
	if data, err := os.ReadFile(configPath); err == nil {
		_ = json.Unmarshal(data, &existing)
	}

	// Add any missing keys
	for key, value := range allKeys {
		if _, exists := existing[key]; !exists {
			existing[key] = value
		}
	}

	// Write back with pretty formatting
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		logger.Errorf("Failed to marshal translations: %v", err)
		return
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		logger.Errorf("Failed to write translations: %v", err)
	} else {
		fmt.Fprintf(os.Stderr, "Exported %d translation keys to %s\n", len(existing), configPath)
		logger.Infof("Exported %d translation keys to %s", len(existing), configPath)
	}
}

// getAllTranslationKeys returns all translation keys with their default English values
func getAllTranslationKeys() map[string]string {
	return map[string]string{
		TOOL_GET_MERGE_REQUEST_DESCRIPTION: "Get a merge request's metadata: title, description, state, author, " +
			"source and target branches, and diff_refs. The merge request is addressed by project (numeric ID " +
			"or namespaced path) and merge_request_iid, the project-scoped number shown in the UI.",
		TOOL_GET_MERGE_REQUEST_CHANGES_DESCRIPTION: "Get the file diffs of a merge request in unified diff form. " +
			"Use this to pick the old_path/new_path and old_line/new_line of a line comment.",
		TOOL_GET_MERGE_REQUEST_VERSIONS_DESCRIPTION: "List the diff versions of a merge request, newest first. " +
			"Entry 0 holds the base_commit_sha, head_commit_sha and start_commit_sha a line comment must be anchored to.",
		TOOL_CREATE_MERGE_REQUEST_DISCUSSION_DESCRIPTION: "Start a discussion attached to a line of a merge request diff. " +
			"position needs base_sha, head_sha and start_sha (from get_merge_request_versions; when all three are " +
			"omitted the current version is used), old_path and/or new_path, and old_line for removed or unchanged " +
			"lines and/or new_line for added or unchanged lines. position may be a JSON object or a JSON-encoded string.",
		TOOL_CREATE_MERGE_REQUEST_NOTE_DESCRIPTION: "Add a general, non-positioned comment to a merge request. " +
			"Set confidential to restrict it to members with access to confidential notes.",
		TOOLSET_MERGE_REQUESTS_DESCRIPTION: "Tools for reviewing GitLab merge requests: read metadata, diffs and versions, and post comments.",
		SERVER_INSTRUCTIONS: `GitLab merge request review server.

Review workflow:
1. get_merge_request to read the title, description and branches.
2. get_merge_request_changes to read the diffs.
3. get_merge_request_versions to get the SHAs of the current version (entry 0).
4. create_merge_request_discussion for each line comment, with a position built from
   those SHAs and the file and line numbers from the diff.
5. create_merge_request_note for the overall summary.

merge_request_iid is the number shown in the merge request URL, not its global ID.
Write tools post real comments and are never retried automatically: if a write fails
with TransportFailure, check the merge request before trying again.`,
	}
}
