package model

import "strings"

// RemoteEntry is one object returned by the backend list call. Entries are
// immutable once received and replaced wholesale on every list response.
type RemoteEntry struct {
	Name       string            `json:"name"`
	Checksum   string            `json:"checksum"`
	DocumentID string            `json:"documentId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ParentID   string            `json:"parentId,omitempty"`
	IsFolder   bool              `json:"isFolder,omitempty"`
}

// NodeID identifies the entry in parent/child links. DocumentID wins when the
// backend assigns one; otherwise the full name is the id.
func (e RemoteEntry) NodeID() string {
	if e.DocumentID != "" {
		return e.DocumentID
	}

	return e.Name
}

// MetadataValue looks a key up case-insensitively.
func (e RemoteEntry) MetadataValue(key string) (string, bool) {
	if v, ok := e.Metadata[key]; ok {
		return v, true
	}

	for k, v := range e.Metadata {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return "", false
}

type ListResult struct {
	Items                 []RemoteEntry `json:"items"`
	NextContinuationToken *string       `json:"nextContinuationToken"`
}

// NextToken flattens the nullable continuation token; "" means no further page.
func (r ListResult) NextToken() string {
	if r.NextContinuationToken == nil {
		return ""
	}

	return *r.NextContinuationToken
}

type SasUploadInfo struct {
	SasURL        string `json:"sasUrl"`
	ContainerName string `json:"containerName,omitempty"`
	ExpiresOn     string `json:"expiresOn,omitempty"`
}

type ReadURL struct {
	FullDownloadURL string `json:"fullDownloadUrl"`
}

type MessageContent struct {
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}
