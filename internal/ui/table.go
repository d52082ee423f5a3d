package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sathwikbalu/Zenith-Study/internal/mesh"
)

func styledTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

func mediaIcon(on bool, icon string) string {
	if on {
		return icon
	}
	return IconOff
}

// ParticipantTable renders the other members of the session and the state
// of the link to each.
func ParticipantTable(remotes []mesh.Remote) string {
	if len(remotes) == 0 {
		return MutedStyle.Render("Nobody else is here yet")
	}

	rows := make([][]string, 0, len(remotes))
	for _, r := range remotes {
		name := truncate(r.UserName, 22)
		if r.IsTutor {
			name = TutorStyle.Render(IconTutor + " " + name)
		}
		link := r.Link.String()
		if r.ICE != "" {
			link += " / " + r.ICE
		}
		rows = append(rows, []string{
			name,
			mediaIcon(r.AudioEnabled, IconMic),
			mediaIcon(r.VideoEnabled, IconCamera),
			link,
			fmt.Sprintf("%d", len(r.Tracks)),
		})
	}
	return styledTable([]string{"Member", "Mic", "Cam", "Link", "Tracks"}, rows).Render()
}

// SessionInfo is the box printed when a member enters a session.
type SessionInfo struct {
	SessionID   string
	SessionLink string
	UserName    string
	IsTutor     bool
}

func (s SessionInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	role := "student"
	if s.IsTutor {
		role = "tutor"
	}
	content := fmt.Sprintf("%s Joined as %s (%s)\n\n%s Session:  %s\n%s Link:     %s",
		IconRoom, BoldStyle.Render(s.UserName), role,
		IconCopy, BoldStyle.Foreground(Primary).Render(s.SessionID),
		IconWeb, MutedStyle.Render(s.SessionLink),
	)
	return boxStyle.Render(content)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
