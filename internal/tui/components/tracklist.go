package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// TrackList renders the audio list with cursor, incremental fuzzy filter,
// and the expanded-track detail block.
type TrackList struct {
	tracks   []domain.Track
	filtered []domain.Track
	cursor   int

	FilterInput textinput.Model
	Filtering   bool

	Height int
}

// NewTrackList creates an empty track list
func NewTrackList() TrackList {
	input := textinput.New()
	input.Placeholder = "filter tracks"
	input.Prompt = "/ "
	input.CharLimit = 64
	return TrackList{FilterInput: input, Height: 20}
}

// SetTracks replaces the list wholesale and re-applies any filter
func (l *TrackList) SetTracks(tracks []domain.Track) {
	l.tracks = tracks
	l.applyFilter()
	if l.cursor >= len(l.filtered) {
		l.cursor = max(0, len(l.filtered)-1)
	}
}

// Remove drops one track by file name, keeping the cursor in range
func (l *TrackList) Remove(fileName string) {
	kept := l.tracks[:0]
	for _, t := range l.tracks {
		if t.FileName != fileName {
			kept = append(kept, t)
		}
	}
	l.tracks = kept
	l.applyFilter()
	if l.cursor >= len(l.filtered) {
		l.cursor = max(0, len(l.filtered)-1)
	}
}

// Selected returns the track under the cursor
func (l *TrackList) Selected() (domain.Track, bool) {
	if l.cursor < 0 || l.cursor >= len(l.filtered) {
		return domain.Track{}, false
	}
	return l.filtered[l.cursor], true
}

// MoveUp moves the cursor up one row
func (l *TrackList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// MoveDown moves the cursor down one row
func (l *TrackList) MoveDown() {
	if l.cursor < len(l.filtered)-1 {
		l.cursor++
	}
}

// StartFilter enters filter mode
func (l *TrackList) StartFilter() tea.Cmd {
	l.Filtering = true
	return l.FilterInput.Focus()
}

// StopFilter leaves filter-input mode, keeping the query applied
func (l *TrackList) StopFilter() {
	l.Filtering = false
	l.FilterInput.Blur()
}

// ClearFilter drops the query and restores the full list
func (l *TrackList) ClearFilter() {
	l.Filtering = false
	l.FilterInput.Blur()
	l.FilterInput.SetValue("")
	l.applyFilter()
}

// Query returns the trimmed filter query
func (l *TrackList) Query() string {
	return strings.TrimSpace(l.FilterInput.Value())
}

// ShowRanked replaces the visible rows with externally ranked results,
// e.g. a committed query ranked by the library service. The next filter
// keystroke or ClearFilter recomputes the view locally.
func (l *TrackList) ShowRanked(tracks []domain.Track) {
	l.filtered = tracks
	if l.cursor >= len(l.filtered) {
		l.cursor = max(0, len(l.filtered)-1)
	}
}

// UpdateFilter feeds a key event into the filter input
func (l *TrackList) UpdateFilter(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.FilterInput, cmd = l.FilterInput.Update(msg)
	l.applyFilter()
	return cmd
}

// trackSource implements fuzzy.Source over track titles
type trackSource []domain.Track

func (s trackSource) String(i int) string { return s[i].Title + " " + s[i].Artist }
func (s trackSource) Len() int            { return len(s) }

func (l *TrackList) applyFilter() {
	query := strings.TrimSpace(l.FilterInput.Value())
	if query == "" {
		l.filtered = l.tracks
		return
	}
	matches := fuzzy.FindFrom(query, trackSource(l.tracks))
	filtered := make([]domain.Track, len(matches))
	for i, m := range matches {
		filtered[i] = l.tracks[m.Index]
	}
	l.filtered = filtered
	if l.cursor >= len(l.filtered) {
		l.cursor = max(0, len(l.filtered)-1)
	}
}

// View renders the list. expanded is the file name of the expanded track
// ("" when collapsed); its row gets the playing marker and a detail block.
func (l *TrackList) View(expanded string, width int) string {
	var b strings.Builder

	if l.Filtering || l.FilterInput.Value() != "" {
		b.WriteString(l.FilterInput.View())
		b.WriteString("\n\n")
	}

	if len(l.filtered) == 0 {
		b.WriteString(styles.DimStyle.Render("no tracks"))
		return b.String()
	}

	start, end := l.window()
	for i := start; i < end; i++ {
		t := l.filtered[i]

		marker := styles.CollapsedChar
		if t.FileName == expanded {
			marker = styles.PlayingChar
		}
		line := fmt.Sprintf("%s %s", marker, t.Title)
		meta := fmt.Sprintf("  %s · %s", t.Artist, t.Duration)

		if i == l.cursor {
			b.WriteString(styles.SelectedStyle.Render(line))
			b.WriteString(styles.DimStyle.Render(meta))
		} else {
			b.WriteString(styles.TitleStyle.Render(line))
			b.WriteString(styles.DimStyle.Render(meta))
		}
		b.WriteString("\n")

		if t.FileName == expanded {
			detail := fmt.Sprintf("   %s", t.Description)
			if t.Category != "" {
				detail += styles.AccentStyle.Render("  [" + t.Category + "]")
			}
			b.WriteString(styles.SubtitleStyle.Render(detail))
			b.WriteString("\n")
		}
	}

	if len(l.filtered) > end-start {
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("\n%d/%d tracks", end-start, len(l.filtered))))
	}
	return b.String()
}

// window returns the visible slice bounds around the cursor
func (l *TrackList) window() (int, int) {
	visible := l.Height
	if visible <= 0 {
		visible = len(l.filtered)
	}
	start := 0
	if l.cursor >= visible {
		start = l.cursor - visible + 1
	}
	end := start + visible
	if end > len(l.filtered) {
		end = len(l.filtered)
	}
	return start, end
}
