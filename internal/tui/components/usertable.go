package components

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/tui/styles"
)

// UserTable renders the admin user list
type UserTable struct {
	Table table.Model
	users []domain.User
}

// NewUserTable creates an empty table
func NewUserTable() UserTable {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Username", Width: 20},
			{Title: "Full name", Width: 24},
			{Title: "Email", Width: 28},
			{Title: "Role", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.DimGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(styles.White).
		Background(styles.Amber).
		Bold(false)
	t.SetStyles(s)

	return UserTable{Table: t}
}

// SetUsers replaces the rows
func (u *UserTable) SetUsers(users []domain.User) {
	u.users = users
	rows := make([]table.Row, len(users))
	for i, user := range users {
		role := user.Role
		if role == "" {
			role = "user"
		}
		rows[i] = table.Row{user.Username, user.FullName, user.Email, role}
	}
	u.Table.SetRows(rows)
}

// Selected returns the user under the cursor
func (u *UserTable) Selected() (domain.User, bool) {
	i := u.Table.Cursor()
	if i < 0 || i >= len(u.users) {
		return domain.User{}, false
	}
	return u.users[i], true
}

// Update feeds a key event into the table
func (u *UserTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	u.Table, cmd = u.Table.Update(msg)
	return cmd
}

// View renders the table
func (u *UserTable) View() string {
	return u.Table.View()
}
