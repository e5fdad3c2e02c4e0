package model

type PreviewKind string

const (
	PreviewImage   PreviewKind = "image"
	PreviewPDF     PreviewKind = "pdf"
	PreviewText    PreviewKind = "text"
	PreviewVideo   PreviewKind = "video"
	PreviewAudio   PreviewKind = "audio"
	PreviewMessage PreviewKind = "message"
	PreviewOther   PreviewKind = "other"
)

type PreviewData struct {
	Path         string          `json:"path"`
	Kind         PreviewKind     `json:"kind"`
	ReadURL      string          `json:"read_url,omitempty"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	Message      *MessageContent `json:"message,omitempty"`
}

type MetadataPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type PropertiesData struct {
	Path     string         `json:"path"`
	Checksum string         `json:"checksum"`
	Metadata []MetadataPair `json:"metadata"`
	Dirty    bool           `json:"dirty"`
}
