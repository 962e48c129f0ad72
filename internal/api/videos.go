package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"uploadai/internal/logging"
)

const uploadFieldName = "file"

// Upload describes a file sent to the video endpoint.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// CreateVideo uploads an audio file as multipart form data and returns the
// server video record. The request is never retried.
func (c *Client) CreateVideo(ctx context.Context, upload Upload) (Video, error) {
	if upload.Body == nil {
		return Video{}, errors.New("api: create video: empty upload body")
	}
	name := strings.TrimSpace(upload.Name)
	if name == "" {
		name = "audio.mp3"
	}
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadFieldName, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return Video{}, fmt.Errorf("api: create video: create form file: %w", err)
	}
	size, err := io.Copy(part, upload.Body)
	if err != nil {
		return Video{}, fmt.Errorf("api: create video: copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Video{}, fmt.Errorf("api: create video: close form: %w", err)
	}

	endpoint, err := c.endpoint("videos")
	if err != nil {
		return Video{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return Video{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("uploading audio",
		logging.String("name", name),
		logging.String("content_type", contentType),
		logging.Int64("bytes", size),
	)
	body, err := c.do(req)
	if err != nil {
		return Video{}, err
	}

	var decoded createVideoResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Video{}, fmt.Errorf("api: create video: decode response: %w", err)
	}
	decoded.Video.ID = strings.TrimSpace(decoded.Video.ID)
	if decoded.Video.ID == "" {
		return Video{}, errors.New("api: create video: response missing video.id")
	}
	return decoded.Video, nil
}

// CreateTranscription asks the backend to transcribe a previously uploaded
// video. The prompt is forwarded as-is; an empty prompt is valid.
func (c *Client) CreateTranscription(ctx context.Context, videoID, prompt string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return ErrEmptyVideoID
	}
	endpoint, err := c.endpoint("videos", videoID, "transcription")
	if err != nil {
		return err
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, endpoint, transcriptionRequest{Prompt: prompt})
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}
