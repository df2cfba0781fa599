package api

import "encoding/json"

// loginResponse is the body of POST /login
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// listFilesResponse is the body of GET /list-files.
// Entries are either bare file name strings or metadata objects, so they
// are kept raw until mapping.
type listFilesResponse struct {
	Files []json.RawMessage `json:"files"`
}

// fileEntry is the metadata-object form of a list entry.
// Servers differ on the file name key, so several are accepted.
type fileEntry struct {
	FileName    string  `json:"file_name"`
	Filename    string  `json:"filename"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	FilePath    string  `json:"file_path"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Artist      string  `json:"artist"`
	Category    string  `json:"category"`
	AudioLength float64 `json:"audio_length"`
}

// uploadResponse is the body of POST /upload
type uploadResponse struct {
	Filename string `json:"filename"`
}

// errorResponse is the structured error body the server returns
type errorResponse struct {
	Detail string `json:"detail"`
}
