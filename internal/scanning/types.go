package scanning

import (
	"time"

	"github.com/google/uuid"
)

// Upload contract of the analysis service
const (
	UploadPath        = "/upload"
	UploadField       = "file"
	UploadFilename    = "scan.jpg"
	UploadContentType = "image/jpeg"
)

// ServerStatus is the availability of the analysis service as seen by the client
type ServerStatus int

const (
	StatusUnknown ServerStatus = iota
	StatusProbing
	StatusReady
	StatusUnreachable
)

func (s ServerStatus) String() string {
	switch s {
	case StatusProbing:
		return "probing"
	case StatusReady:
		return "ready"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ScanResult is the structured answer of the analysis service.
// It is built only by DecodeResult and must not be modified afterwards.
type ScanResult struct {
	Sum          int    `json:"sum"`
	Numbers      []int  `json:"numbers"`
	DetectedText string `json:"detected_text"`
}

// CaptureRequest is one encoded frame ready to be uploaded
type CaptureRequest struct {
	ID         string
	Filename   string
	Data       []byte // JPEG
	CapturedAt time.Time
}

// NewCaptureRequest wraps JPEG bytes in a request with a fresh ID
func NewCaptureRequest(data []byte, capturedAt time.Time) CaptureRequest {
	return CaptureRequest{
		ID:         uuid.NewString(),
		Filename:   UploadFilename,
		Data:       data,
		CapturedAt: capturedAt,
	}
}

// ArchiveKey is the object key under which the frame is archived
func (r CaptureRequest) ArchiveKey() string {
	return "captures/" + r.ID + ".jpg"
}

// Outcome is the terminal value of one capture attempt: either a result or an error
type Outcome struct {
	Attempt   uint64
	RequestID string // empty when the attempt failed before a request was built
	Result    *ScanResult
	Err       error
}

// Success builds a successful outcome
func Success(attempt uint64, requestID string, result *ScanResult) Outcome {
	return Outcome{Attempt: attempt, RequestID: requestID, Result: result}
}

// Failure builds a failed outcome
func Failure(attempt uint64, requestID string, err error) Outcome {
	return Outcome{Attempt: attempt, RequestID: requestID, Err: err}
}

// OK reports whether the outcome carries a result
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// ProbeResult is the answer of a single liveness check
type ProbeResult struct {
	Status     ServerStatus // StatusReady or StatusUnreachable
	StatusCode int          // 0 when no response was received
	Err        error
}

// Reachable reports whether the probe found the service available
func (p ProbeResult) Reachable() bool {
	return p.Status == StatusReady
}
