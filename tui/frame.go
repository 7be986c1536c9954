package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"showtimes-console/rotation"
)

const (
	frameWidth    = 100
	maxTitleRunes = 60
	timestampFmt  = "2006-01-02 15:04:05 MST"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// FormatFrame lays out one movie screen.
func FormatFrame(frame rotation.Frame, width int) string {
	if width <= 0 || width > frameWidth {
		width = frameWidth
	}
	rule := strings.Repeat("=", width)
	item := frame.Item

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(headingStyle.Render("MOVIE SHOWTIMES @ "+frame.Now.Format(timestampFmt)) + "\n")
	b.WriteString(rule + "\n")
	b.WriteString(labelStyle.Render("Location: ") + item.LocationLabel + "\n")

	theater := item.TheaterLabel
	if theater == "" {
		theater = item.TheaterName
	}
	b.WriteString(labelStyle.Render("Theater: ") + theater + "\n")
	if item.Address != "" {
		b.WriteString(labelStyle.Render("Address: ") + item.Address + "\n")
	}
	b.WriteString(rule + "\n")

	title := item.Title
	if title == "" {
		title = "(title unknown)"
	}
	b.WriteString(titleStyle.Render(truncateRunes(title, maxTitleRunes)) + "\n")
	if len(item.Times) == 0 {
		b.WriteString(labelStyle.Render("Times: ") + emptyStyle.Render("(none listed)") + "\n")
	} else {
		b.WriteString(labelStyle.Render("Times:") + "\n")
		for _, t := range item.Times {
			b.WriteString("  - " + timeStyle.Render(t) + "\n")
		}
	}
	b.WriteString(rule)
	return b.String()
}

// positionLine describes where the frame sits in the rotation.
func positionLine(frame rotation.Frame) string {
	return fmt.Sprintf("theater %d/%d · movie %d/%d",
		frame.GroupIndex+1, frame.GroupCount, frame.ItemIndex+1, frame.ItemCount)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
