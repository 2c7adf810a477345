package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/interact"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	heroAccentColor = lipgloss.Color("#ff8c00")
	heroEmberColor  = lipgloss.Color("#2b1400")
	heroTextColor   = lipgloss.Color("#ffe8d6")

	heroTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Background(heroEmberColor).Padding(1, 2)
	taglineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb347")).Italic(true)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	placingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	helpBoxStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
)

func (m *model) View() string {
	switch m.stage {
	case stageLoading:
		return m.viewSplash(fmt.Sprintf("%s %s", m.spinner.View(), m.infoMessage))
	case stageFailed:
		return m.viewSplash(errorStyle.Render(m.wrap(m.errorMessage)))
	default:
		return m.viewDisplay()
	}
}

func (m *model) viewSplash(body string) string {
	hero := heroBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		heroTitleStyle.Render("magnifier"),
		taglineStyle.Render(heroTagline),
	))
	return joinNonEmpty([]string{hero, body, helperStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))})
}

func (m *model) viewDisplay() string {
	vp := m.viewport()
	if vp == nil {
		return m.viewSplash(helperStyle.Render("No pages."))
	}
	lines := []string{m.headerView(vp), m.pageView(vp), m.statusView(vp), m.messageView()}
	lines = append(lines, helperStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return strings.Join(lines, "\n")
}

func (m *model) headerView(vp *interact.Viewport) string {
	kind := "page"
	if vp.Composition() {
		kind = "blank page"
	}
	text := fmt.Sprintf("magnifier  •  %s  •  %s %d/%d",
		filepath.Base(m.config.DocumentPath), kind, vp.Page()+1, len(m.viewports))
	return statusBarStyle.Render(truncate.StringWithTail(text, uint(max(m.layout.cols-2, 1)), "…"))
}

func (m *model) pageView(vp *interact.Viewport) string {
	if m.helpVisible {
		return m.fitRows(helpBoxStyle.Render(m.help.FullHelpView(m.keys.FullHelp())))
	}
	frame := m.composeFrame(vp)
	if frame == nil {
		return m.fitRows(helperStyle.Render("Rendering page…"))
	}
	return halfBlocks(frame)
}

// fitRows pads or cuts s to exactly the page view height.
func (m *model) fitRows(s string) string {
	rows := strings.Split(s, "\n")
	if len(rows) > m.layout.rows {
		rows = rows[:m.layout.rows]
	}
	for len(rows) < m.layout.rows {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m *model) statusView(vp *interact.Viewport) string {
	mode := "same-page"
	if m.session.CrossPage() {
		mode = "copy-to-page"
	}
	callouts := m.session.Snapshot().Page(vp.Page())
	stats := []string{
		fmt.Sprintf("zoom %.0f%%", vp.Transform().Scale*100),
		fmt.Sprintf("mag %.1f×", m.session.Magnification()),
		mode,
		fmt.Sprintf("callouts %d", len(callouts)),
		strings.ToLower(vp.State().String()),
	}
	var labels []string
	for _, c := range callouts {
		if p := export.Resolve(vp.Page(), c); p.Label != "" {
			labels = append(labels, p.Label)
		}
	}
	if len(labels) > 0 {
		stats = append(stats, strings.Join(labels, ", "))
	}
	if m.exporting {
		stats = append(stats, m.spinner.View()+" exporting")
	}
	style := statusBarStyle
	if _, active := m.session.Peek(); active {
		style = placingStyle
	}
	return style.Render(truncate.StringWithTail(strings.Join(stats, "  •  "), uint(max(m.layout.cols-2, 1)), "…"))
}

// messageView is the block under the status bar: the clipboard thumbnail
// on the left, messages on the right.
func (m *model) messageView() string {
	var thumb string
	if item, ok := m.session.Peek(); ok && item.Preview != nil {
		thumb = thumbnail(item.Preview.Image, thumbCols, thumbRows)
	}
	width := m.layout.cols
	if thumb != "" {
		width -= thumbCols + 1
	}
	var parts []string
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(wordwrap.String(m.errorMessage, max(width, 10))))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(wordwrap.String(m.infoMessage, max(width, 10))))
	}
	text := strings.Split(strings.Join(parts, "\n"), "\n")
	if len(text) > thumbRows {
		text = text[:thumbRows]
	}
	for len(text) < thumbRows {
		text = append(text, "")
	}
	block := strings.Join(text, "\n")
	if thumb == "" {
		return block
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, thumb, " ", block)
}

func (m *model) wrap(s string) string {
	width := m.layout.windowWidth
	if width <= 0 {
		width = 80
	}
	return wordwrap.String(s, width)
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}
