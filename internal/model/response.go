package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta describes the server-paginated page currently shown.
type Meta struct {
	Page        int  `json:"page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}
