package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"showtimes-console/rotation"
)

type appState int

const (
	stateLoading appState = iota
	stateShowing
	stateDone
)

type appModel struct {
	state      appState
	frame      rotation.Frame
	hasFrame   bool
	notice     string
	refreshing bool

	width  int
	height int

	spinner spinner.Model
	cancel  context.CancelFunc
	err     error
}

type frameMsg struct {
	frame rotation.Frame
}

type noticeMsg struct {
	text string
}

type refreshingMsg struct{}

type doneMsg struct {
	err error
}

// New builds the display model. cancel is called when the user quits so the
// engine driving the program can stop.
func New(cancel context.CancelFunc) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))

	return appModel{
		state:      stateLoading,
		refreshing: true,
		spinner:    sp,
		cancel:     cancel,
	}
}

func (m appModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.state = stateDone
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshingMsg:
		wasRefreshing := m.refreshing
		m.refreshing = true
		if wasRefreshing {
			return m, nil
		}
		return m, m.spinner.Tick

	case frameMsg:
		m.frame = msg.frame
		m.hasFrame = true
		m.refreshing = false
		m.notice = ""
		m.state = stateShowing
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		m.refreshing = false
		return m, nil

	case doneMsg:
		m.err = msg.err
		m.state = stateDone
		return m, tea.Quit
	}
	return m, nil
}

func (m appModel) View() string {
	if m.state == stateDone {
		return ""
	}

	body := ""
	if m.hasFrame {
		body = FormatFrame(m.frame, m.width) + "\n" + hint(positionLine(m.frame))
	}
	status := ""
	switch {
	case m.refreshing:
		status = fmt.Sprintf("%s %s", m.spinner.View(), "Loading showtimes...")
	case m.notice != "":
		status = noticeStyle.Render(m.notice)
	}

	out := m.headerView()
	if body != "" {
		out += "\n\n" + body
	}
	if status != "" {
		out += "\n\n" + status
	}
	return out
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Render("Movie Showtimes")
	return title + "\n" + hint("q quit • ctrl+c quit")
}

// FinalNotice returns the last notice shown by a finished program model.
func FinalNotice(model tea.Model) string {
	m, ok := model.(appModel)
	if !ok {
		return ""
	}
	return m.notice
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

// ProgramRenderer forwards engine output to a running bubbletea program.
type ProgramRenderer struct {
	send func(tea.Msg)
}

func NewProgramRenderer(p *tea.Program) *ProgramRenderer {
	return &ProgramRenderer{send: p.Send}
}

func (r *ProgramRenderer) Render(frame rotation.Frame) error {
	r.send(frameMsg{frame: frame})
	return nil
}

func (r *ProgramRenderer) Notice(msg string) {
	r.send(noticeMsg{text: msg})
}

func (r *ProgramRenderer) Refreshing() {
	r.send(refreshingMsg{})
}

// Run drives the engine inside a full-screen program. It returns the last
// notice the program displayed and the engine's result.
func Run(ctx context.Context, drive func(context.Context, rotation.Renderer) error, opts ...tea.ProgramOption) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(New(cancel), opts...)
	renderer := NewProgramRenderer(p)

	engineDone := make(chan error, 1)
	go func() {
		err := drive(ctx, renderer)
		engineDone <- err
		p.Send(doneMsg{err: err})
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, runErr := p.Run()
	cancel()
	engineErr := <-engineDone
	if runErr != nil {
		return "", runErr
	}
	return FinalNotice(final), engineErr
}
