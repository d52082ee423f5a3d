package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sathwikbalu/Zenith-Study/internal/mesh"
	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

const (
	commandTimeout = 5 * time.Second
	chatLines      = 6
)

// Controller is the part of a mesh.Session the room screen drives.
type Controller interface {
	SetMediaEnabled(ctx context.Context, kind signaling.MediaKind, enabled bool) error
	SendChat(ctx context.Context, text, messageType string) error
	RequestBoardSync(ctx context.Context) error
	Leave(ctx context.Context) error
}

// RoomUI shows a live session: members, link states, chat and board size.
type RoomUI struct {
	program *tea.Program
	updates chan mesh.View
}

type viewMsg mesh.View

type errMsg struct{ err error }

type roomModel struct {
	ctrl     Controller
	info     SessionInfo
	view     mesh.View
	spinner  spinner.Model
	input    textinput.Model
	typing   bool
	status   string
	quitting bool
	updates  <-chan mesh.View
}

func NewRoomUI(ctrl Controller, info SessionInfo) *RoomUI {
	updates := make(chan mesh.View, 1)
	return &RoomUI{
		program: tea.NewProgram(newRoomModel(ctrl, info, updates)),
		updates: updates,
	}
}

func newRoomModel(ctrl Controller, info SessionInfo, updates <-chan mesh.View) *roomModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	in := textinput.New()
	in.Placeholder = "say something"
	in.CharLimit = 500
	in.Prompt = IconChat + " "

	return &roomModel{
		ctrl:    ctrl,
		info:    info,
		spinner: s,
		input:   in,
		updates: updates,
	}
}

// Push hands the screen a new view. It never blocks; an unread older view is replaced.
func (ui *RoomUI) Push(v mesh.View) {
	for {
		select {
		case ui.updates <- v:
			return
		default:
		}
		select {
		case <-ui.updates:
		default:
		}
	}
}

// Run blocks until the user quits or Quit is called.
func (ui *RoomUI) Run() error {
	_, err := ui.program.Run()
	return err
}

func (ui *RoomUI) Quit() {
	ui.program.Quit()
}

func (m *roomModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *roomModel) listen() tea.Cmd {
	return func() tea.Msg {
		return viewMsg(<-m.updates)
	}
}

func (m *roomModel) call(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *roomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.typing {
			return m.updateTyping(msg)
		}
		return m.updateKeys(msg)

	case viewMsg:
		m.view = mesh.View(msg)
		if m.view.LastError != "" {
			m.status = m.view.LastError
		}
		return m, m.listen()

	case errMsg:
		m.status = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *roomModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Sequence(m.call(m.ctrl.Leave), tea.Quit)

	case "a":
		enabled := !m.view.AudioEnabled
		return m, m.call(func(ctx context.Context) error {
			return m.ctrl.SetMediaEnabled(ctx, signaling.Audio, enabled)
		})

	case "v":
		enabled := !m.view.VideoEnabled
		return m, m.call(func(ctx context.Context) error {
			return m.ctrl.SetMediaEnabled(ctx, signaling.Video, enabled)
		})

	case "s":
		return m, m.call(m.ctrl.RequestBoardSync)

	case "enter", "/":
		m.typing = true
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *roomModel) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.typing = false
		m.input.Blur()
		m.input.Reset()
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.typing = false
		m.input.Blur()
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		return m, m.call(func(ctx context.Context) error {
			return m.ctrl.SendChat(ctx, text, "text")
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *roomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s %s", IconRoom, m.info.SessionID)))
	b.WriteString("\n")

	switch {
	case !m.view.Joined:
		b.WriteString(fmt.Sprintf("%s Joining...\n\n", m.spinner.View()))
	case m.view.ReceiveOnly:
		b.WriteString(WarningStyle.Render("Receive-only: no local media") + "\n\n")
	default:
		b.WriteString(fmt.Sprintf("You: %s  %s\n\n",
			mediaIcon(m.view.AudioEnabled, IconMic),
			mediaIcon(m.view.VideoEnabled, IconCamera)))
	}

	b.WriteString(ParticipantTable(m.view.Remotes))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %d objects on the board\n\n", IconBoard, len(m.view.Board)))

	chat := m.view.Chat
	if len(chat) > chatLines {
		chat = chat[len(chat)-chatLines:]
	}
	for _, c := range chat {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			MutedStyle.Render(c.Timestamp.Local().Format("15:04")),
			BoldStyle.Render(c.UserName+":"),
			c.Message))
	}

	if m.status != "" {
		b.WriteString("\n" + ErrorStyle.Render(m.status) + "\n")
	}

	if m.typing {
		b.WriteString("\n" + m.input.View())
	} else {
		b.WriteString(FooterStyle.Render("a mic · v camera · s sync board · enter chat · q leave"))
	}
	return b.String()
}
