package pipeline

import "fmt"

// Status is the pipeline state shown to the user.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConverting Status = "converting"
	StatusUploading  Status = "uploading"
	StatusGenerating Status = "generating"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Active reports whether a submission is in flight.
func (s Status) Active() bool {
	switch s {
	case StatusConverting, StatusUploading, StatusGenerating:
		return true
	default:
		return false
	}
}

// Label returns the user-facing status line. percent is only used while
// converting.
func (s Status) Label(percent int) string {
	switch s {
	case StatusConverting:
		return fmt.Sprintf("Converting... %d%%", percent)
	case StatusUploading:
		return "Uploading..."
	case StatusGenerating:
		return "Transcribing..."
	case StatusSuccess:
		return "Success!"
	case StatusFailed:
		return "Failed"
	default:
		return "Upload video"
	}
}

// isValidTransition enforces the allowed state machine edges.
func isValidTransition(from, to Status) bool {
	switch from {
	case StatusWaiting:
		return to == StatusConverting
	case StatusConverting:
		return to == StatusUploading || to == StatusFailed
	case StatusUploading:
		return to == StatusGenerating || to == StatusFailed
	case StatusGenerating:
		return to == StatusSuccess || to == StatusFailed
	case StatusSuccess:
		return to == StatusWaiting || to == StatusConverting
	case StatusFailed:
		return to == StatusWaiting
	default:
		return false
	}
}
