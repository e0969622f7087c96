package history

import "time"

// Entry is the persisted record of one resolved capture attempt
type Entry struct {
	ID           string    `json:"id"`
	Attempt      uint64    `json:"attempt"`
	RequestID    string    `json:"request_id,omitempty"`
	OK           bool      `json:"ok"`
	Sum          int       `json:"sum"`
	Numbers      []int     `json:"numbers,omitempty"`
	DetectedText string    `json:"detected_text,omitempty"`
	Reason       string    `json:"reason,omitempty"` // failure class, empty on success
	Error        string    `json:"error,omitempty"`
	ArchiveKey   string    `json:"archive_key,omitempty"` // set whenever a request was built, even with archiving off
	CreatedAt    time.Time `json:"created_at"`
}
