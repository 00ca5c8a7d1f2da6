package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/ui/styles"
)

const maxToolLinesShown = 8

// Markdown renders finished assistant answers, caching the renderer per width.
type Markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

func (md *Markdown) Render(text string, width int) string {
	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(width-6, 20)),
		)
		if err != nil {
			return text
		}
		md.renderer, md.width = r, width
	}
	out, err := md.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func RenderMessages(entries []models.Entry, width int, md *Markdown) string {
	var b strings.Builder

	for _, e := range entries {
		switch e.Kind {
		case models.EntryNotice:
			b.WriteString(styles.NoticeStyle().Render(e.Content) + "\n")
		case models.EntryUser:
			b.WriteString(styles.UserStyle().Render("You: "+e.Content) + "\n\n")
		case models.EntryAssistant:
			content := e.Content
			if e.Done && md != nil {
				content = md.Render(content, width)
			}
			b.WriteString(styles.AssistantStyle().Render(content) + "\n\n")
		case models.EntryTool:
			b.WriteString(renderTool(e) + "\n")
		case models.EntryError:
			b.WriteString(styles.ErrorStyle().Render("Error: "+e.Content) + "\n\n")
		}
	}

	return b.String()
}

func renderTool(e models.Entry) string {
	marker := "…"
	switch {
	case e.Done && e.Failed:
		marker = "✗"
	case e.Done:
		marker = "✓"
	}

	var b strings.Builder
	b.WriteString(styles.ToolStyle().Render(fmt.Sprintf("%s %s %s", marker, e.Title, e.Content)))

	lines := e.Lines
	if len(lines) > maxToolLinesShown {
		hidden := len(lines) - maxToolLinesShown
		lines = append([]string{fmt.Sprintf("... %d more lines", hidden)}, lines[hidden:]...)
	}
	for _, line := range lines {
		b.WriteString("\n" + styles.ToolOutputStyle().Render(line))
	}
	return b.String()
}
