package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/tui/styles"
)

const userFieldCount = 4 // username, password, email, full name

// UserForm collects account fields for the admin create/edit views
type UserForm struct {
	Username textinput.Model
	Password textinput.Model
	Email    textinput.Model
	FullName textinput.Model
	admin    bool
	focus    int

	// Create is true for a new account, false when editing
	Create bool
}

// NewUserForm creates an empty form
func NewUserForm() UserForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128

	fullName := textinput.New()
	fullName.Placeholder = "full name"
	fullName.CharLimit = 128

	return UserForm{Username: username, Password: password, Email: email, FullName: fullName}
}

// Load fills the form for creating or editing an account
func (f *UserForm) Load(user *domain.User) tea.Cmd {
	f.blurAll()
	f.focus = 0
	f.Password.SetValue("")
	if user == nil {
		f.Create = true
		f.admin = false
		f.Username.SetValue("")
		f.Email.SetValue("")
		f.FullName.SetValue("")
	} else {
		f.Create = false
		f.admin = user.IsAdmin()
		f.Username.SetValue(user.Username)
		f.Email.SetValue(user.Email)
		f.FullName.SetValue(user.FullName)
	}
	return f.Username.Focus()
}

// Next cycles focus through the fields
func (f *UserForm) Next() tea.Cmd {
	inputs := f.inputs()
	inputs[f.focus].Blur()
	f.focus = (f.focus + 1) % userFieldCount
	return inputs[f.focus].Focus()
}

// ToggleAdmin flips the admin role
func (f *UserForm) ToggleAdmin() {
	f.admin = !f.admin
}

// Update feeds a key event into the focused field
func (f *UserForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case 0:
		f.Username, cmd = f.Username.Update(msg)
	case 1:
		f.Password, cmd = f.Password.Update(msg)
	case 2:
		f.Email, cmd = f.Email.Update(msg)
	case 3:
		f.FullName, cmd = f.FullName.Update(msg)
	}
	return cmd
}

// Account builds the account payload from the current fields
func (f *UserForm) Account() domain.UserAccount {
	role := "user"
	if f.admin {
		role = "admin"
	}
	return domain.UserAccount{
		Username: strings.TrimSpace(f.Username.Value()),
		Password: f.Password.Value(),
		Email:    strings.TrimSpace(f.Email.Value()),
		FullName: strings.TrimSpace(f.FullName.Value()),
		Role:     role,
	}
}

// View renders the form
func (f *UserForm) View() string {
	var b strings.Builder
	if f.Create {
		b.WriteString(styles.TitleStyle.Render("New user"))
	} else {
		b.WriteString(styles.TitleStyle.Render("Edit user"))
	}
	b.WriteString("\n\n")
	b.WriteString(f.Username.View())
	b.WriteString("\n")
	b.WriteString(f.Password.View())
	b.WriteString("\n")
	b.WriteString(f.Email.View())
	b.WriteString("\n")
	b.WriteString(f.FullName.View())
	b.WriteString("\n\n")
	if f.admin {
		b.WriteString(styles.AccentStyle.Render("role: admin"))
	} else {
		b.WriteString(styles.SubtitleStyle.Render("role: user"))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.DimStyle.Render("tab: next field · ctrl+a: toggle admin · enter: save · esc: back"))
	return b.String()
}

func (f *UserForm) inputs() []*textinput.Model {
	return []*textinput.Model{&f.Username, &f.Password, &f.Email, &f.FullName}
}

func (f *UserForm) blurAll() {
	for _, in := range f.inputs() {
		in.Blur()
	}
}
