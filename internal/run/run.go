// Package run holds the recorded outcome of upgrade runs.
package run

// Run is one recorded upgrade of a project between two versions.
type Run struct {
	// ID is a ULID that uniquely identifies this run
	ID string `json:"id"`

	// Project is the absolute, cleaned working folder that was upgraded
	Project string `json:"project"`

	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`

	// Model is the chat model that produced the changes
	Model string `json:"model"`

	// Interactive is false when every decision was taken automatically
	Interactive bool `json:"interactive"`

	// Exited is true when the operator stopped before the last file
	Exited bool `json:"exited"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	// Cost is the rendered cost estimate, e.g. "$0.12"
	Cost string `json:"cost"`

	// Files holds one entry per diffed path, sorted by path
	Files []File `json:"files"`

	// CreatedAt and FinishedAt are Unix timestamps
	CreatedAt  int64 `json:"created_at"`
	FinishedAt int64 `json:"finished_at"`

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// File is the final state of one diffed path.
type File struct {
	Path          string   `json:"path"`
	Change        string   `json:"change"`
	Error         string   `json:"error,omitempty"`
	CustomPrompts []string `json:"custom_prompts,omitempty"`
}

// Counts tallies files by change.
func (r *Run) Counts() map[string]int {
	counts := make(map[string]int)
	for _, f := range r.Files {
		counts[f.Change]++
	}
	return counts
}
