package run

// Summary is a run's metadata without per-file detail.
// Used for list operations to reduce data transfer.
type Summary struct {
	ID               string         `json:"id"`
	Project          string         `json:"project"`
	FromVersion      string         `json:"from_version"`
	ToVersion        string         `json:"to_version"`
	Model            string         `json:"model"`
	Interactive      bool           `json:"interactive"`
	Exited           bool           `json:"exited"`
	FileCount        int            `json:"file_count"`
	Counts           map[string]int `json:"counts"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	Cost             string         `json:"cost"`
	CreatedAt        int64          `json:"created_at"`
	FinishedAt       int64          `json:"finished_at"`
	DeletedAt        *int64         `json:"deleted_at,omitempty"`
}

// ToSummary converts a Run to a Summary by dropping the file list.
func (r *Run) ToSummary() Summary {
	return Summary{
		ID:               r.ID,
		Project:          r.Project,
		FromVersion:      r.FromVersion,
		ToVersion:        r.ToVersion,
		Model:            r.Model,
		Interactive:      r.Interactive,
		Exited:           r.Exited,
		FileCount:        len(r.Files),
		Counts:           r.Counts(),
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		Cost:             r.Cost,
		CreatedAt:        r.CreatedAt,
		FinishedAt:       r.FinishedAt,
		DeletedAt:        r.DeletedAt,
	}
}
