// Package catalog holds the prompt templates offered by the backend and
// resolves a user selection to its template text.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"uploadai/internal/api"
	"uploadai/internal/services"
)

// TranscriptionPlaceholder is substituted by the backend with the video transcript.
const TranscriptionPlaceholder = "{transcription}"

// ErrUnknownPrompt is returned when a reference matches no prompt.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Lister fetches the prompt list.
type Lister interface {
	ListPrompts(ctx context.Context) ([]api.Prompt, error)
}

// Catalog is an immutable snapshot of the prompt list.
type Catalog struct {
	prompts []api.Prompt
	byID    map[string]int
	byTitle map[string]int
}

// Load fetches the prompt list once.
func Load(ctx context.Context, lister Lister) (*Catalog, error) {
	prompts, err := lister.ListPrompts(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "catalog", "load prompts", "", err)
	}
	return New(prompts), nil
}

// New builds a catalog from prompts. On duplicate ids or titles the first wins.
func New(prompts []api.Prompt) *Catalog {
	c := &Catalog{
		prompts: append([]api.Prompt(nil), prompts...),
		byID:    make(map[string]int, len(prompts)),
		byTitle: make(map[string]int, len(prompts)),
	}
	for i, prompt := range c.prompts {
		if _, ok := c.byID[prompt.ID]; !ok {
			c.byID[prompt.ID] = i
		}
		key := titleKey(prompt.Title)
		if _, ok := c.byTitle[key]; !ok && key != "" {
			c.byTitle[key] = i
		}
	}
	return c
}

// Prompts returns the prompts in backend order.
func (c *Catalog) Prompts() []api.Prompt {
	return append([]api.Prompt(nil), c.prompts...)
}

// Len returns the number of prompts.
func (c *Catalog) Len() int {
	return len(c.prompts)
}

// Template returns the template for id.
func (c *Catalog) Template(id string) (string, error) {
	idx, ok := c.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: %w: id %q", services.ErrNotFound, ErrUnknownPrompt, id)
	}
	return c.prompts[idx].Template, nil
}

// Resolve accepts a prompt id or a title compared with Unicode case folding.
func (c *Catalog) Resolve(ref string) (api.Prompt, error) {
	ref = strings.TrimSpace(ref)
	if idx, ok := c.byID[ref]; ok {
		return c.prompts[idx], nil
	}
	if idx, ok := c.byTitle[titleKey(ref)]; ok {
		return c.prompts[idx], nil
	}
	if suggestion := c.Suggest(ref); suggestion != "" {
		return api.Prompt{}, fmt.Errorf("%w: %w: %q (did you mean %q?)", services.ErrNotFound, ErrUnknownPrompt, ref, suggestion)
	}
	return api.Prompt{}, fmt.Errorf("%w: %w: %q", services.ErrNotFound, ErrUnknownPrompt, ref)
}

// UsesTranscription reports whether a prompt references the transcript.
func UsesTranscription(prompt string) bool {
	return strings.Contains(prompt, TranscriptionPlaceholder)
}

func titleKey(title string) string {
	// a Caser is stateful, so each call gets its own
	return cases.Fold().String(strings.Join(strings.Fields(title), " "))
}
