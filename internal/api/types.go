package api

// Prompt is a reusable prompt template offered by the backend.
type Prompt struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Template string `json:"template"`
}

// Video is the server record created for an uploaded audio file. Only ID is
// relied upon; the remaining fields are informational.
type Video struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Path          string `json:"path,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

// CompletionRequest is the body sent to the completion endpoint.
type CompletionRequest struct {
	Prompt      string  `json:"prompt"`
	VideoID     string  `json:"videoId"`
	Temperature float64 `json:"temperature"`
}

type createVideoResponse struct {
	Video Video `json:"video"`
}

type transcriptionRequest struct {
	Prompt string `json:"prompt"`
}
