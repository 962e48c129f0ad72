package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"uploadai/internal/api"
	"uploadai/internal/catalog"
	"uploadai/internal/logging"
	"uploadai/internal/pipeline"
)

// Client is the backend surface the form uses.
type Client interface {
	pipeline.Backend
	catalog.Lister
	Complete(ctx context.Context, request api.CompletionRequest, onChunk api.ChunkFunc) error
}

// Options wires the form to its collaborators.
type Options struct {
	Converter   pipeline.Converter
	Client      Client
	ResetDelay  time.Duration
	Temperature float64
	ModelLabel  string
	Logger      *slog.Logger
}

type focusArea int

const (
	focusVideo focusArea = iota
	focusKeywords
	focusUpload
	focusPromptSelect
	focusPrompt
	focusTemperature
	focusGenerate
	focusCount
)

const (
	temperatureStep = 0.1
	panelWidth      = 48
)

// Model is the bubbletea model for the upload and generation form.
type Model struct {
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
	pipeline *pipeline.Pipeline
	events   chan tea.Msg
	logger   *slog.Logger

	videoInput  textinput.Model
	keywords    textarea.Model
	promptInput textarea.Model
	result      viewport.Model
	resultText  string

	prompts     []api.Prompt
	promptIndex int
	temperature float64

	status    pipeline.Status
	percent   int
	videoID   string
	streaming bool
	streamCh  chan streamChunkMsg

	focus  focusArea
	err    error
	width  int
	height int
}

// New builds the form and its pipeline.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	events := make(chan tea.Msg, 64)
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}
	resetDelay := opts.ResetDelay
	if resetDelay <= 0 {
		resetDelay = pipeline.DefaultResetDelay
	}
	p := pipeline.New(opts.Converter, opts.Client,
		pipeline.WithResetDelay(resetDelay),
		pipeline.WithLogger(logger),
		pipeline.WithObservers(pipeline.Observers{
			OnStatus:        func(s pipeline.Status) { send(statusMsg{status: s}) },
			OnProgress:      func(percent int) { send(progressMsg{percent: percent}) },
			OnVideoUploaded: func(id string) { send(uploadedMsg{videoID: id}) },
		}),
	)

	video := textinput.New()
	video.Placeholder = "path/to/video.mp4"
	video.Width = panelWidth - 4
	video.Focus()

	keywords := textarea.New()
	keywords.Placeholder = "Keywords mentioned in the video, separated by commas"
	keywords.SetWidth(panelWidth - 2)
	keywords.SetHeight(3)
	keywords.ShowLineNumbers = false

	prompt := textarea.New()
	prompt.Placeholder = "Write your prompt; use {transcription} to insert the video transcript"
	prompt.SetWidth(panelWidth - 2)
	prompt.SetHeight(5)
	prompt.ShowLineNumbers = false

	result := viewport.New(panelWidth-2, 8)

	temperature := clampTemperature(opts.Temperature)
	opts.ModelLabel = strings.TrimSpace(opts.ModelLabel)
	if opts.ModelLabel == "" {
		opts.ModelLabel = "GPT 3.5-turbo 16k"
	}

	return Model{
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		pipeline:    p,
		events:      events,
		logger:      logger,
		videoInput:  video,
		keywords:    keywords,
		promptInput: prompt,
		result:      result,
		promptIndex: -1,
		temperature: temperature,
		status:      pipeline.StatusWaiting,
	}
}

// Init loads the prompt catalog and starts draining pipeline events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPrompts(), m.waitForEvent(), textinput.Blink)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case promptsLoadedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("load prompts: %w", msg.err)
			return m, nil
		}
		m.prompts = msg.prompts
		return m, nil

	case statusMsg:
		m.status = msg.status
		if msg.status == pipeline.StatusConverting {
			m.percent = 0
			m.err = nil
		}
		return m, m.waitForEvent()

	case progressMsg:
		m.percent = msg.percent
		return m, m.waitForEvent()

	case uploadedMsg:
		m.videoID = msg.videoID
		return m, m.waitForEvent()

	case submitDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.logger.Warn("submission failed", logging.Error(msg.err))
			m.err = msg.err
		}
		return m, nil

	case streamChunkMsg:
		if msg.err != nil {
			m.streaming = false
			m.err = fmt.Errorf("completion: %w", msg.err)
			return m, nil
		}
		if msg.delta != "" {
			m.resultText += msg.delta
			m.result.SetContent(m.resultText)
			m.result.GotoBottom()
		}
		if msg.done {
			m.streaming = false
			return m, nil
		}
		return m, waitForNextChunk(m.streamCh)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.shutdown()
		return m, tea.Quit
	case "tab":
		return m.setFocus((m.focus + 1) % focusCount), nil
	case "shift+tab":
		return m.setFocus((m.focus + focusCount - 1) % focusCount), nil
	}

	switch m.focus {
	case focusUpload:
		if msg.String() == "enter" {
			return m.submit()
		}
		return m, nil
	case focusGenerate:
		if msg.String() == "enter" {
			return m.generate()
		}
		return m, nil
	case focusPromptSelect:
		switch msg.String() {
		case "up", "k":
			m.selectPrompt(m.promptIndex - 1)
		case "down", "j":
			m.selectPrompt(m.promptIndex + 1)
		}
		return m, nil
	case focusTemperature:
		switch msg.String() {
		case "left", "h", "-":
			m.temperature = clampTemperature(m.temperature - temperatureStep)
		case "right", "l", "+":
			m.temperature = clampTemperature(m.temperature + temperatureStep)
		}
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusVideo:
		m.videoInput, cmd = m.videoInput.Update(msg)
	case focusKeywords:
		if m.status != pipeline.StatusWaiting {
			return m, nil
		}
		m.keywords, cmd = m.keywords.Update(msg)
	case focusPrompt:
		m.promptInput, cmd = m.promptInput.Update(msg)
	default:
		m.result, cmd = m.result.Update(msg)
	}
	return m, cmd
}

func (m Model) setFocus(next focusArea) Model {
	m.videoInput.Blur()
	m.keywords.Blur()
	m.promptInput.Blur()
	m.focus = next
	switch next {
	case focusVideo:
		m.videoInput.Focus()
	case focusKeywords:
		m.keywords.Focus()
	case focusPrompt:
		m.promptInput.Focus()
	}
	return m
}

func (m *Model) selectPrompt(idx int) {
	if len(m.prompts) == 0 {
		return
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.prompts) {
		idx = len(m.prompts) - 1
	}
	if idx == m.promptIndex {
		return
	}
	m.promptIndex = idx
	m.promptInput.SetValue(m.prompts[idx].Template)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.status != pipeline.StatusWaiting && m.status != pipeline.StatusSuccess {
		return m, nil
	}
	var file *pipeline.SelectedFile
	if path := strings.TrimSpace(m.videoInput.Value()); path != "" {
		selected, err := pipeline.FileFromPath(path)
		if err != nil {
			m.err = err
			return m, nil
		}
		file = selected
	}
	m.err = nil
	p, ctx, prompt := m.pipeline, m.ctx, m.keywords.Value()
	return m, func() tea.Msg {
		_, err := p.Submit(ctx, pipeline.Submission{File: file, Prompt: prompt})
		return submitDoneMsg{err: err}
	}
}

func (m Model) generate() (tea.Model, tea.Cmd) {
	if m.videoID == "" || m.streaming {
		return m, nil
	}
	ch := make(chan streamChunkMsg, 16)
	m.streamCh = ch
	m.streaming = true
	m.err = nil
	m.resultText = ""
	m.result.SetContent("")

	request := api.CompletionRequest{
		Prompt:      m.promptInput.Value(),
		VideoID:     m.videoID,
		Temperature: m.temperature,
	}
	client, ctx := m.opts.Client, m.ctx
	go func() {
		defer close(ch)
		err := client.Complete(ctx, request, func(chunk string) error {
			select {
			case ch <- streamChunkMsg{delta: chunk}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case ch <- streamChunkMsg{err: err, done: true}:
			case <-ctx.Done():
			}
		}
	}()
	return m, waitForNextChunk(ch)
}

func (m Model) loadPrompts() tea.Cmd {
	client, ctx := m.opts.Client, m.ctx
	return func() tea.Msg {
		cat, err := catalog.Load(ctx, client)
		if err != nil {
			return promptsLoadedMsg{err: err}
		}
		return promptsLoadedMsg{prompts: cat.Prompts()}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// waitForNextChunk returns a command that waits for the next streaming chunk.
func waitForNextChunk(ch <-chan streamChunkMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamChunkMsg{done: true}
		}
		return msg
	}
}

func (m Model) shutdown() {
	m.cancel()
	m.pipeline.Close()
}

func clampTemperature(t float64) float64 {
	t = math.Round(t*10) / 10
	return math.Max(0, math.Min(1, t))
}

// View renders the form.
func (m Model) View() string {
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("upload.ai"),
		subtitleStyle.Render("Upload a video, then generate text from its transcript."),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(panelWidth).Render(m.renderVideoPanel()),
		" ",
		panelStyle.Width(panelWidth).Render(m.renderGeneratePanel()),
	)
	parts := []string{header, body}
	if m.err != nil {
		parts = append(parts, errorStyle.Render("Error: "+m.err.Error()))
	}
	parts = append(parts, helpStyle.Render("tab/shift+tab move • enter activate • ←/→ temperature • ↑/↓ prompt • esc quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) label(area focusArea, text string) string {
	if m.focus == area {
		return focusedLabelStyle.Render("› " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m Model) renderVideoPanel() string {
	var b strings.Builder
	b.WriteString(m.label(focusVideo, "Video file"))
	b.WriteString("\n")
	b.WriteString(m.videoInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.label(focusKeywords, "Transcription prompt"))
	b.WriteString("\n")
	b.WriteString(m.keywordsView())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Keywords help the transcription spell names correctly."))
	b.WriteString("\n\n")
	b.WriteString(m.uploadButton())
	if m.videoID != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("Video id: " + m.videoID))
	}
	return b.String()
}

// keywordsView dims the transcription prompt while it cannot be edited.
func (m Model) keywordsView() string {
	if m.status == pipeline.StatusWaiting {
		return m.keywords.View()
	}
	text := m.keywords.Value()
	if text == "" {
		text = m.keywords.Placeholder
	}
	return hintStyle.Render(text)
}

func (m Model) uploadButton() string {
	label := m.status.Label(m.percent)
	switch {
	case m.status == pipeline.StatusSuccess:
		return successButtonStyle.Render(label)
	case m.status == pipeline.StatusFailed:
		return disabledButtonStyle.Foreground(colorError).Render(label)
	case m.status != pipeline.StatusWaiting:
		return disabledButtonStyle.Render(label)
	case m.focus == focusUpload:
		return focusedButtonStyle.Render(label)
	default:
		return buttonStyle.Render(label)
	}
}

func (m Model) renderGeneratePanel() string {
	var b strings.Builder
	b.WriteString(m.label(focusPromptSelect, "Prompt"))
	b.WriteString("\n")
	b.WriteString(m.renderPromptSelect())
	b.WriteString("\n\n")
	b.WriteString(m.label(focusPrompt, "Prompt text"))
	b.WriteString("\n")
	b.WriteString(m.promptInput.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Use " + catalog.TranscriptionPlaceholder + " to insert the transcript."))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("  Model: "))
	b.WriteString(hintStyle.Render(m.opts.ModelLabel))
	b.WriteString("\n")
	b.WriteString(m.label(focusTemperature, fmt.Sprintf("Temperature: %.1f", m.temperature)))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Higher values are more creative and less precise."))
	b.WriteString("\n\n")
	b.WriteString(m.generateButton())
	b.WriteString("\n\n")
	b.WriteString(m.result.View())
	return b.String()
}

func (m Model) renderPromptSelect() string {
	if len(m.prompts) == 0 {
		return hintStyle.Render("  (no prompts loaded)")
	}
	if m.promptIndex < 0 {
		return hintStyle.Render("  Select a prompt...")
	}
	return "  " + m.prompts[m.promptIndex].Title
}

func (m Model) generateButton() string {
	label := "Generate"
	if m.streaming {
		label = "Generating..."
	}
	switch {
	case m.videoID == "" || m.streaming:
		return disabledButtonStyle.Render(label)
	case m.focus == focusGenerate:
		return focusedButtonStyle.Render(label)
	default:
		return buttonStyle.Render(label)
	}
}

// Run starts the form and blocks until the user quits.
func Run(opts Options) error {
	model := New(opts)
	defer model.shutdown()
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
