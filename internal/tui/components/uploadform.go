package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/tui/styles"
)

// Categories offered by the upload form
var Categories = []string{"music", "podcast", "audiobook", "voice", "other"}

const uploadFieldCount = 3 // file path, description, duration

// UploadForm collects the upload fields and renders transfer progress
type UploadForm struct {
	FilePath    textinput.Model
	Description textinput.Model
	Duration    textinput.Model
	category    int // index into Categories, -1 = none chosen
	focus       int

	Uploading bool
	Percent   int
	Bar       progress.Model
}

// NewUploadForm creates the form with the file path focused
func NewUploadForm() UploadForm {
	filePath := textinput.New()
	filePath.Placeholder = "path to audio file"
	filePath.CharLimit = 512
	filePath.Focus()

	description := textinput.New()
	description.Placeholder = "description"
	description.CharLimit = 256

	duration := textinput.New()
	duration.Placeholder = "duration in seconds (optional)"
	duration.CharLimit = 16

	return UploadForm{
		FilePath:    filePath,
		Description: description,
		Duration:    duration,
		category:    -1,
		Bar:         progress.New(progress.WithDefaultGradient()),
	}
}

// Next cycles focus through the text fields
func (f *UploadForm) Next() tea.Cmd {
	inputs := []*textinput.Model{&f.FilePath, &f.Description, &f.Duration}
	inputs[f.focus].Blur()
	f.focus = (f.focus + 1) % uploadFieldCount
	return inputs[f.focus].Focus()
}

// CycleCategory advances the chosen category
func (f *UploadForm) CycleCategory() {
	f.category = (f.category + 1) % len(Categories)
}

// Category returns the chosen category, empty when none
func (f *UploadForm) Category() string {
	if f.category < 0 {
		return ""
	}
	return Categories[f.category]
}

// Update feeds a key event into the focused field
func (f *UploadForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case 0:
		f.FilePath, cmd = f.FilePath.Update(msg)
	case 1:
		f.Description, cmd = f.Description.Update(msg)
	case 2:
		f.Duration, cmd = f.Duration.Update(msg)
	}
	return cmd
}

// Request builds the upload request from the current fields
func (f *UploadForm) Request() domain.UploadRequest {
	seconds, _ := strconv.ParseFloat(strings.TrimSpace(f.Duration.Value()), 64)
	return domain.UploadRequest{
		FilePath:        strings.TrimSpace(f.FilePath.Value()),
		Description:     strings.TrimSpace(f.Description.Value()),
		Category:        f.Category(),
		DurationSeconds: seconds,
	}
}

// Reset clears every field after a successful upload
func (f *UploadForm) Reset() {
	f.FilePath.SetValue("")
	f.Description.SetValue("")
	f.Duration.SetValue("")
	f.category = -1
	f.Uploading = false
	f.Percent = 0
	f.Description.Blur()
	f.Duration.Blur()
	f.focus = 0
	f.FilePath.Focus()
}

// View renders the form or, mid-transfer, the progress bar
func (f *UploadForm) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Upload"))
	b.WriteString("\n\n")

	if f.Uploading {
		b.WriteString(f.Bar.ViewAs(float64(f.Percent) / 100))
		b.WriteString(fmt.Sprintf("  %d%%\n\n", f.Percent))
		b.WriteString(styles.DimStyle.Render("esc: cancel upload"))
		return b.String()
	}

	b.WriteString(f.FilePath.View())
	b.WriteString("\n")
	b.WriteString(f.Description.View())
	b.WriteString("\n")
	b.WriteString(f.Duration.View())
	b.WriteString("\n\n")

	category := f.Category()
	if category == "" {
		b.WriteString(styles.ErrorStyle.Render("category: none (press c)"))
	} else {
		b.WriteString(styles.AccentStyle.Render("category: " + category))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.DimStyle.Render("tab: next field · c: category · enter: upload · esc: back"))
	return b.String()
}
