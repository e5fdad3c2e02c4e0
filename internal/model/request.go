package model

type SetContainerRequest struct {
	Container string `json:"container"`
}

type SetFolderRequest struct {
	Folder string `json:"folder"`
}

type SetSortRequest struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

type SetExpandedRequest struct {
	ID       string `json:"id"`
	Expanded bool   `json:"expanded"`
}

type ToggleRequest struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
	Shift bool   `json:"shift"`
}

type SelectAllRequest struct {
	Checked bool `json:"checked"`
}

type ResolutionRequest struct {
	TaskIndex int  `json:"task_index"`
	Overwrite bool `json:"overwrite"`
}

type MetadataKeyRequest struct {
	Path  string `json:"path"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SaveMetadataRequest saves the pending draft of Path, or replaces the
// metadata with Metadata when it is given.
type SaveMetadataRequest struct {
	Path     string         `json:"path"`
	Metadata []MetadataPair `json:"metadata,omitempty"`
}

type DeleteFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type DeleteResponse struct {
	Deleted []string        `json:"deleted"`
	Failed  []DeleteFailure `json:"failed"`
}

type SessionCreated struct {
	SessionID string `json:"session_id"`
}

type UploadAccepted struct {
	BatchID string `json:"batch_id"`
	Tasks   int    `json:"tasks"`
}

type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	SessionID  string     `json:"session_id,omitempty"`
	OccurredAt string     `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Container  string     `json:"container"`
	Resource   string     `json:"resource,omitempty"`
	Detail     any        `json:"detail,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// AuditQuery filters the chain-of-custody log. Empty fields match everything.
type AuditQuery struct {
	Action    string
	ActorID   string
	Container string
	Status    string
	Path      string
	From      string
	To        string
	Page      int
	Limit     int
}

type SelectionData struct {
	Selected []string `json:"selected"`
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
