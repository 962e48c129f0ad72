package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"uploadai/internal/logging"
)

const sseDone = "[DONE]"

// ChunkFunc receives completion text as it arrives. Returning an error stops
// the stream.
type ChunkFunc func(chunk string) error

// Complete streams a completion for the given request, calling onChunk for
// each piece of text in arrival order. Event-stream bodies are decoded as SSE
// data lines; any other body is forwarded raw.
func (c *Client) Complete(ctx context.Context, request CompletionRequest, onChunk ChunkFunc) error {
	if strings.TrimSpace(request.VideoID) == "" {
		return ErrEmptyVideoID
	}
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	endpoint, err := c.endpoint("ai", "complete")
	if err != nil {
		return err
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, endpoint, request)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream, text/plain")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*2))
		return checkStatus(req, resp, body)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/event-stream" {
		err = readEventStream(resp.Body, onChunk)
	} else {
		err = readRaw(resp.Body, onChunk)
	}
	if err != nil {
		return err
	}
	c.logger.Debug("completion stream finished",
		logging.String("video_id", request.VideoID),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func readRaw(body io.Reader, onChunk ChunkFunc) error {
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := body.Read(buf)
		if n > 0 {
			text, rest := splitUTF8(append(pending, buf[:n]...))
			pending = rest
			if text != "" {
				if cbErr := onChunk(text); cbErr != nil {
					return cbErr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			if len(pending) > 0 {
				return onChunk(string(pending))
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("api: read completion stream: %w", err)
		}
	}
}

// splitUTF8 returns the longest prefix of b that does not end in a partial
// multi-byte rune, plus the incomplete remainder.
func splitUTF8(b []byte) (string, []byte) {
	cut := len(b)
	for i := len(b) - 1; i >= 0 && i >= len(b)-3; i-- {
		c := b[i]
		if c < 0x80 {
			break
		}
		if c >= 0xC0 {
			need := 2
			switch {
			case c >= 0xF0:
				need = 4
			case c >= 0xE0:
				need = 3
			}
			if len(b)-i < need {
				cut = i
			}
			break
		}
	}
	rest := append([]byte(nil), b[cut:]...)
	return string(b[:cut]), rest
}

func readEventStream(body io.Reader, onChunk ChunkFunc) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data []string
	flush := func() (bool, error) {
		if len(data) == 0 {
			return false, nil
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		if payload == sseDone {
			return true, nil
		}
		return false, onChunk(payload)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			done, err := flush()
			if err != nil || done {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field == "data" {
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("api: read completion stream: %w", err)
	}
	_, err := flush()
	return err
}
