package gitlab

import (
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// SelectVersion picks the version a new discussion is anchored to: the entry
// whose ID matches versionID, or entry 0 (the current version) when versionID
// is zero. GitLab lists versions newest first.
func SelectVersion(versions []*gl.MergeRequestDiffVersion, versionID int64) (*gl.MergeRequestDiffVersion, error) {
	if len(versions) == 0 || versions[0] == nil {
		return nil, ErrValidation(0, "merge request has no diff versions yet", nil)
	}
	if versionID == 0 {
		return versions[0], nil
	}
	for _, v := range versions {
		if v != nil && v.ID == versionID {
			return v, nil
		}
	}
	return nil, ErrValidation(0, fmt.Sprintf("diff version %d does not belong to this merge request", versionID), nil)
}
