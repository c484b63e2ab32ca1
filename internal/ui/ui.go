package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tunebridge/tunebridge/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConvertView ViewState = iota
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.Engine
	link         string
	width        int
	spin         spinner.Model
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.ConversionResult
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.quit} }

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.quit}} }

type progressUpdateMsg tasks.ProgressUpdate

type conversionCompleteMsg struct {
	result *tasks.ConversionResult
	err    error
}

// NewModel creates a new TUI model that will convert the given link.
func NewModel(ctx context.Context, engine *tasks.Engine, link string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return &Model{
		ctx:    ctx,
		view:   ConvertView,
		engine: engine,
		link:   link,
		spin:   sp,
		bar:    progress.New(progress.WithDefaultGradient()),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init starts the conversion in the background.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.startConversion())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case conversionCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConvertView:
		return m.renderConvert()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startConversion() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.engine.ConvertPlaylistLink(m.ctx, m.progressChan, m.link)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return conversionCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return conversionCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConvert() string {
	title := styles.title.Render("Converting Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching source playlist..."
	case tasks.CreatePlaylist:
		phase = "Creating destination playlist..."
	case tasks.SearchTracks, tasks.AddTrack:
		phase = fmt.Sprintf("Matching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	var bar string
	if m.progress.Total > 1 {
		bar = m.bar.ViewAs(float64(m.progress.Step) / float64(m.progress.Total))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	return fmt.Sprintf("%s %s\n\n%s\n%s\n\n%s", m.spin.View(), title, phase, bar+"\n"+m.progress.Message, helpView)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Conversion failed: %v\n\nPress q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Conversion Complete!")
	info := fmt.Sprintf("\nPlaylist: %s\nMatched: %d/%d",
		m.result.PlaylistLink, m.result.MatchedCount, len(m.result.Outcomes))

	var failed strings.Builder
	if len(m.result.FailedTracks) > 0 {
		failed.WriteString("\n\n")
		failed.WriteString(styles.warn.Render(fmt.Sprintf("Failed to match %d tracks:", len(m.result.FailedTracks))))
		for _, track := range m.result.FailedTracks {
			failed.WriteString(fmt.Sprintf("\n  • %s - %s", track.ArtistName, track.TrackName))
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed.String(), helpView)
}
