// Package diff turns an upstream unified diff into per-file upgrade records.
package diff

// Change is the upgrade state of one file.
type Change string

const (
	ChangePending   Change = "pending"
	ChangeUpgrading Change = "upgrading"
	ChangeCreated   Change = "created"
	ChangeModified  Change = "modified"
	ChangeDeleted   Change = "deleted"
	ChangeSkipped   Change = "skipped"
	ChangeIgnored   Change = "ignored"
	ChangeError     Change = "error"
)

// Terminal reports whether no further processing is expected for the state.
func (c Change) Terminal() bool {
	switch c {
	case ChangePending, ChangeUpgrading:
		return false
	}
	return true
}

// FileRecord is the diff and workflow state of one file.
type FileRecord struct {
	Path          string   `json:"path"`
	Diff          string   `json:"diff"`
	Change        Change   `json:"change"`
	Error         string   `json:"error,omitempty"`
	CustomPrompts []string `json:"custom_prompts"`
}

// newRecord returns a record in its initial pending state.
func newRecord(path string) *FileRecord {
	return &FileRecord{
		Path:          path,
		Change:        ChangePending,
		CustomPrompts: []string{},
	}
}
