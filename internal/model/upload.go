package model

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
	UploadConflict  UploadStatus = "conflict"
	UploadSkipped   UploadStatus = "skipped"
)

// Terminal reports whether no further transition can leave the status.
func (s UploadStatus) Terminal() bool {
	return s == UploadSuccess || s == UploadError || s == UploadSkipped
}

type UploadTaskView struct {
	Index        int          `json:"index"`
	Name         string       `json:"name"`
	Destination  string       `json:"destination"`
	Overwrite    bool         `json:"overwrite"`
	Status       UploadStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Attempts     int          `json:"attempts"`
}

type UploadSummary struct {
	Succeeded int              `json:"succeeded"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Tasks     []UploadTaskView `json:"tasks"`
}

type UploadBatchView struct {
	ID          string           `json:"id"`
	Container   string           `json:"container"`
	Destination string           `json:"destination"`
	Done        bool             `json:"done"`
	Tasks       []UploadTaskView `json:"tasks"`
	Summary     *UploadSummary   `json:"summary,omitempty"`
}

// ConflictPrompt is pushed to the browser when an upload needs an overwrite
// decision.
type ConflictPrompt struct {
	BatchID   string `json:"batch_id"`
	TaskIndex int    `json:"task_index"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}
