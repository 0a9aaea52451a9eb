package translations

// Translation keys for tool descriptions and server text. Values in the
// config file override the defaults in getAllTranslationKeys.
const (
	TOOL_GET_MERGE_REQUEST_DESCRIPTION               = "TOOL_GET_MERGE_REQUEST_DESCRIPTION"
	TOOL_GET_MERGE_REQUEST_CHANGES_DESCRIPTION       = "TOOL_GET_MERGE_REQUEST_CHANGES_DESCRIPTION"
	TOOL_GET_MERGE_REQUEST_VERSIONS_DESCRIPTION      = "TOOL_GET_MERGE_REQUEST_VERSIONS_DESCRIPTION"
	TOOL_CREATE_MERGE_REQUEST_DISCUSSION_DESCRIPTION = "TOOL_CREATE_MERGE_REQUEST_DISCUSSION_DESCRIPTION"
	TOOL_CREATE_MERGE_REQUEST_NOTE_DESCRIPTION       = "TOOL_CREATE_MERGE_REQUEST_NOTE_DESCRIPTION"
	TOOLSET_MERGE_REQUESTS_DESCRIPTION               = "TOOLSET_MERGE_REQUESTS_DESCRIPTION"
	SERVER_INSTRUCTIONS                              = "SERVER_INSTRUCTIONS"
)
