package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListPrompts fetches the prompt catalog. Transient failures are retried with
// exponential backoff.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	endpoint, err := c.endpoint("prompts")
	if err != nil {
		return nil, err
	}

	var prompts []Prompt
	err = c.withRetry(ctx, "api: list prompts", func() error {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		body, err := c.do(req)
		if err != nil {
			return err
		}
		var decoded []Prompt
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("api: list prompts: decode response: %w", err)
		}
		prompts = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = []Prompt{}
	}
	return prompts, nil
}
