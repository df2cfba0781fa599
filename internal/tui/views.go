package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hollis/cantata/internal/tui/styles"
)

// View renders the current state
func (m Model) View() string {
	var body string
	switch m.State {
	case StateLogin:
		body = m.LoginForm.View()
	case StateBrowsing:
		body = m.TrackList.View(m.Sources.Expanded(), m.Width)
	case StateUpload:
		body = m.UploadForm.View()
	case StateUsers:
		body = m.usersView()
	case StateUserForm:
		body = m.UserForm.View()
	case StateConfirmDelete:
		body = m.confirmView(fmt.Sprintf("Delete %q from the server?", m.pendingDelete.Title))
	case StateConfirmUserDelete:
		body = m.confirmView(fmt.Sprintf("Delete user %q?", m.pendingUserDelete))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.footerView(),
	)
}

func (m Model) headerView() string {
	title := styles.AccentStyle.Render("cantata")
	who := ""
	if m.State != StateLogin {
		if username := m.Session.Username(); username != "" {
			who = styles.SubtitleStyle.Render("  " + username)
		}
	}
	return title + who + "\n"
}

func (m Model) footerView() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.Loading {
		b.WriteString(m.Spinner.View())
		b.WriteString(" ")
	}

	if m.StatusMsg != "" {
		if m.StatusIsErr {
			b.WriteString(styles.ErrorStyle.Render(m.StatusMsg))
		} else {
			b.WriteString(styles.SuccessStyle.Render(m.StatusMsg))
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.DimStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	switch m.State {
	case StateBrowsing:
		help := "enter: play/stop · s: save · x: delete · /: filter · r: refresh · u: upload · L: logout · q: quit"
		if m.CurrentUser.IsAdmin() {
			help += " · U: users"
		}
		return help
	case StateUsers:
		return "n: new · e: edit · x: delete · r: refresh · esc: back"
	case StateConfirmDelete, StateConfirmUserDelete:
		return "y: confirm · n: cancel"
	default:
		return ""
	}
}

func (m Model) usersView() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Users"))
	b.WriteString("\n\n")
	b.WriteString(m.UserTable.View())
	return b.String()
}

func (m Model) confirmView(question string) string {
	return styles.TitleStyle.Render(question) + "\n\n" +
		styles.ErrorStyle.Render("this cannot be undone")
}
