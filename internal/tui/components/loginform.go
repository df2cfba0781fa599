package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/tui/styles"
)

// LoginForm collects username and password
type LoginForm struct {
	Username textinput.Model
	Password textinput.Model
	focus    int
}

// NewLoginForm creates the form with the username field focused
func NewLoginForm() LoginForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return LoginForm{Username: username, Password: password}
}

// Next moves focus to the other field
func (f *LoginForm) Next() tea.Cmd {
	f.focus = (f.focus + 1) % 2
	if f.focus == 0 {
		f.Password.Blur()
		return f.Username.Focus()
	}
	f.Username.Blur()
	return f.Password.Focus()
}

// Update feeds a key event into the focused field
func (f *LoginForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.Username, cmd = f.Username.Update(msg)
	} else {
		f.Password, cmd = f.Password.Update(msg)
	}
	return cmd
}

// Values returns the trimmed credentials
func (f *LoginForm) Values() (string, string) {
	return strings.TrimSpace(f.Username.Value()), f.Password.Value()
}

// Reset clears both fields and refocuses username
func (f *LoginForm) Reset() {
	f.Username.SetValue("")
	f.Password.SetValue("")
	f.Password.Blur()
	f.focus = 0
	f.Username.Focus()
}

// View renders the form
func (f *LoginForm) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Sign in"))
	b.WriteString("\n\n")
	b.WriteString(f.Username.View())
	b.WriteString("\n")
	b.WriteString(f.Password.View())
	b.WriteString("\n\n")
	b.WriteString(styles.DimStyle.Render("tab: next field · enter: sign in · q: quit"))
	return b.String()
}
