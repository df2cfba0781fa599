package domain

// Track describes one audio file in the library list.
// The list is rebuilt wholesale on every refresh; tracks are never patched
// in place.
type Track struct {
	ID          int    // position in the server list
	Title       string
	Description string
	Artist      string
	Category    string
	Duration    string // display string, "--:--" when unknown
	FileName    string // bare file name used in stream/download/delete paths
	FilePath    string // server-side path as reported, may be empty
}

// User is an account record returned by the server.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// IsAdmin reports whether the user may access the admin views.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// UserAccount carries the fields for admin create/update calls.
// Password is empty on update unless it is being changed.
type UserAccount struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// UploadRequest describes a pending upload.
type UploadRequest struct {
	FilePath        string  // local path of the audio file
	Description     string
	Category        string
	DurationSeconds float64
}
