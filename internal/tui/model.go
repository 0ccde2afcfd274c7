// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jordanhubbard/ollama-cli/internal/commands"
	"github.com/jordanhubbard/ollama-cli/internal/config"
	"github.com/jordanhubbard/ollama-cli/internal/conversation"
	"github.com/jordanhubbard/ollama-cli/internal/mention"
	"github.com/jordanhubbard/ollama-cli/internal/ollama"
	"github.com/jordanhubbard/ollama-cli/internal/session"
	"github.com/jordanhubbard/ollama-cli/internal/storage"
)

// =============================================================================
// STATE
// =============================================================================

// State is the interaction state of the interface.
type State int

const (
	StateReady     State = iota // Waiting for input
	StateStreaming              // Receiving a response
	StateError                  // Showing a failed exchange
)

// repaintInterval caps transcript repaints during streaming. Tokens
// keep accumulating between paints; the terminal message forces a full
// repaint so nothing is lost.
const repaintInterval = 33 * time.Millisecond

// tuiDirectives is the slash directive subset the full-screen mode
// handles itself. Everything else is pointed at the plain chat REPL.
var tuiDirectives = map[string]bool{
	"/help":   true,
	"/quit":   true,
	"/clear":  true,
	"/model":  true,
	"/models": true,
	"/save":   true,
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options carries the resolved dependencies for a session. The cli
// package builds this so the program shares its configuration loading
// and storage setup with the other commands.
type Options struct {
	Client  *ollama.Client
	Conv    *conversation.Conversation
	Manager *session.Manager
	Store   *storage.Store // nil disables persistence
	Cfg     *config.Config
	Model   string
	Gen     *ollama.Options
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the full-screen interface.
type Model struct {
	state State

	width  int
	height int
	ready  bool

	conv     *conversation.Conversation
	client   *ollama.Client
	manager  *session.Manager
	store    *storage.Store
	cfg      *config.Config
	expander *mention.Expander
	registry *commands.Registry
	parser   *commands.Parser
	runner   *StreamRunner

	modelName string
	gen       *ollama.Options

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Streaming display state. streamID correlates stream messages with
	// the exchange they belong to. streamBuf and repaint are pointers
	// because Bubble Tea copies the model on every update and both
	// types must not be copied once used.
	streamID      int
	streamBuf     *strings.Builder
	awaitingFirst bool
	repaint       *rate.Sometimes

	availableModels []string
	serverOK        bool
	statusLine      string
	lastStats       string
	lastErr         error
	fatalErr        error

	exchangeCount int
	startTime     time.Time
	showHelp      bool
	quitting      bool
}

// New builds the model from resolved options.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, /help for directives"
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 12,
	}
	sp.Style = spinnerStyle

	registry := commands.NewRegistry()

	return Model{
		state:     StateReady,
		conv:      opts.Conv,
		client:    opts.Client,
		manager:   opts.Manager,
		store:     opts.Store,
		cfg:       opts.Cfg,
		expander:  mention.NewExpander(mention.NewResolver(mention.DefaultResolverConfig())),
		registry:  registry,
		parser:    commands.NewParser(registry),
		runner:    NewStreamRunner(opts.Client),
		modelName: opts.Model,
		gen:       opts.Gen,
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		keyMap:    DefaultKeyMap(),
		streamBuf: &strings.Builder{},
		repaint:   &rate.Sometimes{Interval: repaintInterval},
		startTime: time.Now(),
	}
}

// Runner returns the stream runner so the caller can attach the program
// after tea.NewProgram.
func (m Model) Runner() *StreamRunner {
	return m.runner
}

// Err returns the error that terminated the session, if any.
func (m Model) Err() error {
	return m.fatalErr
}

// Exchanges returns the number of completed exchanges, for the exit
// summary.
func (m Model) Exchanges() int {
	return m.exchangeCount
}

// StartTime returns when the session began.
func (m Model) StartTime() time.Time {
	return m.startTime
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the input cursor, the session ticker, and the initial
// server probes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		session.TickCmd(),
		CheckServerCmd(m.client),
		ListModelsCmd(m.client),
	)
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport(false)
		return m, cmd

	case StreamStartMsg:
		if msg.ID != m.streamID {
			return m, nil
		}
		// A stream that opened proves the server is reachable.
		m.serverOK = true
		return m, nil

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamCancelledMsg:
		return m.handleStreamCancelled(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case ServerStatusMsg:
		m.serverOK = msg.Running
		if msg.Err != nil {
			m.statusLine = statusError("Ollama is not running. Start it with: ollama serve")
		}
		return m, nil

	case ModelListMsg:
		if msg.Err == nil {
			names := make([]string, 0, len(msg.Models))
			for _, info := range msg.Models {
				names = append(names, info.Name)
			}
			m.availableModels = names
		}
		return m, nil

	case SaveDoneMsg:
		if msg.Err != nil {
			m.statusLine = statusError("save failed: " + msg.Err.Error())
			return m, nil
		}
		m.conv.SetID(msg.ID)
		m.manager.MarkClean()
		m.statusLine = statusDim("saved " + shortID(msg.ID))
		return m, nil

	case session.TickMsg:
		return m, m.manager.HandleTick()

	case session.TimeoutWarningMsg:
		m.statusLine = statusWarn(fmt.Sprintf("[session times out in %s]", msg.Remaining.Round(time.Second)))
		return m, nil

	case session.TimeoutMsg:
		return m.quit()

	case session.AutoSaveMsg:
		return m, m.saveCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE AND KEYS
// =============================================================================

// handleResize fits the viewport between the one-line header, the input
// line, and the one-line status bar, then re-wraps the transcript.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := msg.Height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight

	inputWidth := msg.Width - 4
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.ready = true
	m.refreshViewport(true)
	return m, nil
}

// handleKey dispatches key presses. Unmatched keys edit the input line,
// which keeps focus for the whole session.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.manager.RecordActivity()

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m.quit()

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateStreaming {
			if m.runner.Cancel() {
				m.statusLine = statusWarn("[cancelling]")
			}
			return m, nil
		}
		if m.state == StateError {
			m.state = StateReady
			m.lastErr = nil
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		m.clearConversation()
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// INPUT PROCESSING
// =============================================================================

// submit classifies the input line. Only a slash in column one makes a
// directive; chat text is stored exactly as typed. Whitespace-only
// lines are ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	raw := m.input.Value()
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}
	m.input.Reset()

	if commands.IsCommand(raw) {
		return m.runDirective(raw)
	}
	return m.startExchange(raw)
}

// startExchange appends the user turn and launches the stream. The
// stored turn keeps the typed text verbatim; @path mentions are
// expanded into the outgoing request only.
func (m Model) startExchange(input string) (tea.Model, tea.Cmd) {
	m.statusLine = ""

	requestContent := input
	if mention.HasMentions(input) {
		expansion := m.expander.Expand(input)
		if expansion.HasErrors() {
			m.statusLine = statusWarn("[mention] " + expansion.ErrorSummary())
		} else if len(expansion.Mentions) > 0 {
			m.statusLine = statusDim("Attached: " + mention.Describe(expansion.Mentions))
		}
		requestContent = expansion.Expanded
	}

	if _, err := m.conv.AddUserTurn(input); err != nil {
		if conversation.IsInvariantViolation(err) {
			return m.fatal(err)
		}
		m.statusLine = statusError(err.Error())
		return m, nil
	}

	messages := m.conv.RequestMessages(m.cfg.Chat.ContextTokens)
	if requestContent != input && len(messages) > 0 {
		messages[len(messages)-1].Content = requestContent
	}

	m.streamID++
	m.state = StateStreaming
	m.awaitingFirst = true
	m.streamBuf.Reset()
	m.lastStats = ""
	m.lastErr = nil
	m.refreshViewport(true)

	m.runner.Start(m.streamID, m.modelName, messages, m.gen)
	return m, m.spinner.Tick
}

// runDirective executes one slash directive or points the user at the
// REPL for the ones not carried here.
func (m Model) runDirective(raw string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(raw)
	if result.Error != nil {
		m.statusLine = statusError(result.Error.Error())
		return m, nil
	}

	if !tuiDirectives[result.Command.Name] {
		m.statusLine = statusDim(result.Command.Name + " is available in the plain chat REPL (ollama-cli chat)")
		return m, nil
	}

	if err := commands.ValidateArgs(result.Command, result.Args); err != nil {
		line := err.Error()
		if result.Command.Usage != "" {
			line += " (usage: " + result.Command.Usage + ")"
		}
		m.statusLine = statusWarn(line)
		return m, nil
	}

	switch result.Command.Name {
	case "/help":
		m.showHelp = true

	case "/quit":
		return m.quit()

	case "/clear":
		m.clearConversation()

	case "/model":
		if len(result.Args) == 0 {
			m.statusLine = statusDim(fmt.Sprintf("model: %s (%d installed)", m.modelName, len(m.availableModels)))
			return m, nil
		}
		return m.switchModel(result.Args[0])

	case "/models":
		m.statusLine = statusDim(modelListLine(m.availableModels))

	case "/save":
		if m.store == nil {
			m.statusLine = statusWarn("history is disabled")
			return m, nil
		}
		if title := strings.TrimSpace(result.RawArgs); title != "" {
			m.conv.SetTitle(title)
		}
		if cmd := m.saveCmd(); cmd != nil {
			return m, cmd
		}
		m.statusLine = statusDim("nothing to save")
	}

	return m, nil
}

// switchModel validates the name against the installed list when it has
// loaded, then switches the session over.
func (m Model) switchModel(name string) (tea.Model, tea.Cmd) {
	if len(m.availableModels) > 0 {
		found := false
		for _, candidate := range m.availableModels {
			if candidate == name {
				found = true
				break
			}
		}
		if !found {
			m.statusLine = statusError(fmt.Sprintf("model %q is not installed (try /models)", name))
			return m, nil
		}
	}

	m.modelName = name
	m.conv.SetModel(name)
	m.statusLine = statusOK("switched to " + name)
	return m, nil
}

// clearConversation starts a new transcript under a fresh identity; the
// one it grew from stays in the store.
func (m *Model) clearConversation() {
	m.conv.Clear()
	m.conv.SetID("")
	m.conv.SetTitle("")
	m.manager.MarkClean()
	if _, ok := m.conv.SystemTurn(); ok {
		m.statusLine = statusOK("conversation cleared (system prompt kept)")
	} else {
		m.statusLine = statusOK("conversation cleared")
	}
	m.refreshViewport(true)
}

// =============================================================================
// STREAM HANDLERS
// =============================================================================

// handleStreamToken appends a fragment and repaints under the rate cap.
func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if msg.ID != m.streamID || m.state != StateStreaming {
		return m, nil
	}
	m.awaitingFirst = false
	m.streamBuf.WriteString(msg.Token)
	m.refreshViewport(false)
	return m, nil
}

// handleStreamComplete records the assistant turn, truncated or not.
func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.ID != m.streamID {
		return m, nil
	}

	turn := conversation.NewAssistantTurn(msg.Content)
	turn.Truncated = msg.Truncated
	if msg.Stats != nil {
		turn.TTFT = msg.Stats.TTFT
		turn.TotalDuration = msg.Stats.TotalDuration
		turn.TokensPerSec = msg.Stats.TokensPerSecond
	}
	if err := m.conv.Append(turn); err != nil {
		return m.fatal(err)
	}

	m.state = StateReady
	m.streamBuf.Reset()
	m.exchangeCount++
	m.manager.MarkDirty()

	if msg.Stats != nil && m.cfg.UI.ShowStats {
		m.lastStats = msg.Stats.Format()
	}
	if msg.Truncated {
		m.statusLine = statusDim("[response truncated]")
	}

	m.refreshViewport(true)
	return m, nil
}

// handleStreamCancelled rolls back the user turn: nothing arrived, so
// the exchange never happened.
func (m Model) handleStreamCancelled(msg StreamCancelledMsg) (tea.Model, tea.Cmd) {
	if msg.ID != m.streamID {
		return m, nil
	}
	m.rollbackUserTurn()
	m.state = StateReady
	m.streamBuf.Reset()
	m.statusLine = statusWarn("[cancelled]")
	m.refreshViewport(true)
	return m, nil
}

// handleStreamError rolls back the user turn and surfaces the failure.
func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if msg.ID != m.streamID {
		return m, nil
	}
	m.rollbackUserTurn()
	m.state = StateError
	m.lastErr = msg.Err
	m.streamBuf.Reset()
	m.refreshViewport(true)
	return m, nil
}

// rollbackUserTurn removes the just-appended user turn after a failed
// exchange, so a retry does not create consecutive user turns.
func (m *Model) rollbackUserTurn() {
	if last, ok := m.conv.LastTurn(); ok && last.Role == conversation.RoleUser {
		m.conv.RemoveLast()
	}
}

// =============================================================================
// PERSISTENCE AND EXIT
// =============================================================================

// saveCmd snapshots the conversation off the update loop. Conversation
// state is mutex-guarded, so reading it from the command goroutine is
// safe.
func (m *Model) saveCmd() tea.Cmd {
	if m.store == nil || m.conv.Len() == 0 {
		return nil
	}
	conv := m.conv
	store := m.store
	modelName := m.modelName
	return func() tea.Msg {
		conv.SetModel(modelName)
		id, err := store.Save(storage.Snapshot(conv))
		if err != nil {
			return SaveDoneMsg{Err: err}
		}
		return SaveDoneMsg{ID: id}
	}
}

// quit cancels any stream, autosaves a dirty conversation, and leaves
// the program.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.state == StateStreaming {
		m.runner.Cancel()
	}

	if m.store != nil && m.cfg.History.AutoSave && m.manager.IsDirty() && m.conv.Len() > 0 {
		m.conv.SetModel(m.modelName)
		if id, err := m.store.Save(storage.Snapshot(m.conv)); err == nil {
			m.conv.SetID(id)
			m.manager.MarkClean()
		}
	}

	return m, tea.Quit
}

// fatal terminates the session on conversation corruption. The caller
// of Run surfaces the error after the program exits.
func (m Model) fatal(err error) (tea.Model, tea.Cmd) {
	m.fatalErr = err
	m.quitting = true
	return m, tea.Quit
}

// =============================================================================
// VIEWPORT REFRESH
// =============================================================================

// refreshViewport rebuilds the transcript. Forced refreshes always run;
// streaming refreshes go through the rate cap. The viewport follows the
// tail only while it is already at the bottom, so scrolling up to read
// is not fought by incoming tokens.
func (m *Model) refreshViewport(force bool) {
	render := func() {
		stick := m.viewport.AtBottom()
		m.viewport.SetContent(m.transcriptView())
		if stick {
			m.viewport.GotoBottom()
		}
	}
	if force {
		render()
		return
	}
	m.repaint.Do(render)
}

// shortID abbreviates a stored conversation ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// modelListLine formats the installed model names for the status bar.
func modelListLine(names []string) string {
	if len(names) == 0 {
		return "no models reported yet"
	}
	const show = 5
	if len(names) <= show {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:show], ", "), len(names)-show)
}
