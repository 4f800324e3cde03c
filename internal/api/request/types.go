package request

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
}

// CaptureRequest is the request body for recording a capture
type CaptureRequest struct {
	ID      string `json:"id"`
	Species string `json:"species"`
	Shiny   *bool  `json:"shiny,omitempty"`
	// CapturedAt is an RFC 3339 timestamp; the server time is used when absent
	CapturedAt *string `json:"captured_at,omitempty"`
}

// UncaptureRequest is the request body for removing a capture
type UncaptureRequest struct {
	ID      string `json:"id"`
	Species string `json:"species"`
}
