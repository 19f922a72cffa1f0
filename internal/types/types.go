// Package types defines the studio API request and response types.
package types

// LoginRequest is the request body for /v1/api-login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for /v1/api-login.
type LoginResponse struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	Error   *string `json:"error,omitempty"`
}

// Project is a studio project visible to the logged in user.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProjectEntry is one project as sent by the studio. The fields are
// pointers so an entry missing either one can be rejected.
type ProjectEntry struct {
	ID   *int    `json:"id"`
	Name *string `json:"name"`
}

// ListProjectsResponse is the response body for /v1/api/projects.
type ListProjectsResponse struct {
	Success  bool           `json:"success"`
	Projects []ProjectEntry `json:"projects"`
	Error    string         `json:"error,omitempty"`
}

// APIKey is one entry of a project's key list.
type APIKey struct {
	APIKey *string `json:"apiKey"`
}

// ListAPIKeysResponse is the response body for /v1/api/{projectId}/apikeys.
type ListAPIKeysResponse struct {
	Success bool     `json:"success"`
	APIKeys []APIKey `json:"apiKeys"`
	Error   string   `json:"error,omitempty"`
}

// UploadResult describes the outcome of an ingestion upload.
type UploadResult struct {
	OK         bool
	StatusCode int
	Message    string
	Body       []byte
}
