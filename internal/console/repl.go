// Package console is the line-oriented front end: it reads one line per
// prompt, streams the agent's output as it arrives and answers approval
// requests inline.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
)

const maxToolArgsShown = 120

type palette struct {
	prompt, notice, tool, output, ok, failed, question lipgloss.Style
}

func newPalette() palette {
	return palette{
		prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		tool:     lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		output:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		ok:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		question: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
}

// REPL talks to the chat service over the event bus.
type REPL struct {
	bus    *eventbus.EventBus
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	style  palette

	running   bool
	eof       bool
	midLine   bool
	queued    []string
	approving *approval.Request
}

func NewREPL(bus *eventbus.EventBus, in io.Reader, out io.Writer, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &REPL{bus: bus, in: in, out: out, logger: logger, style: newPalette()}
}

// Run serves the session until the user types exit, the input ends with no
// turn in flight, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	go r.readLines(ctx, lines)

	r.printPrompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				lines = nil
				r.eof = true
				if r.approving != nil {
					r.answer("")
				}
				if !r.running {
					fmt.Fprintln(r.out)
					return nil
				}
				continue
			}
			if r.handleLine(line) {
				return nil
			}

		case evt, ok := <-r.bus.CoreToUI():
			if !ok {
				return nil
			}
			if r.handleEvent(evt) {
				return nil
			}
		}
	}
}

func (r *REPL) readLines(ctx context.Context, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		r.logger.Error("failed to read input", "error", err)
	}
}

// handleLine reports true when the session should end.
func (r *REPL) handleLine(line string) bool {
	if r.approving != nil {
		r.answer(line)
		return false
	}
	if r.running {
		r.queued = append(r.queued, line)
		return false
	}
	return r.submit(line)
}

func (r *REPL) submit(line string) bool {
	text := strings.TrimSpace(line)
	switch {
	case text == "":
		r.printPrompt()
		return false
	case strings.EqualFold(text, "exit"):
		return true
	}

	if err := r.bus.SendToCore(eventbus.SendMessageEvent{Message: text}); err != nil {
		fmt.Fprintln(r.out, r.style.failed.Render("Error sending message: "+err.Error()))
		r.printPrompt()
		return false
	}
	r.running = true
	return false
}

func (r *REPL) answer(line string) {
	id := r.approving.ID
	r.approving = nil
	if err := r.bus.SendToCore(eventbus.ApprovalResponseEvent{ID: id, Answer: line}); err != nil {
		r.logger.Error("failed to send approval answer", "id", id, "error", err)
	}
}

// handleEvent reports true when the session should end.
func (r *REPL) handleEvent(evt eventbus.CoreEvent) bool {
	switch e := evt.(type) {
	case eventbus.NoticeEvent:
		r.endLine()
		fmt.Fprintln(r.out, r.style.notice.Render(e.Text))
	case eventbus.ApprovalRequestEvent:
		r.askApproval(e.Request)
	case eventbus.StreamEvent:
		return r.handleStream(e.Event)
	case eventbus.StateUpdateEvent:
		if e.Error != nil && !r.running {
			r.endLine()
			fmt.Fprintln(r.out, r.style.failed.Render("Error: "+e.Error.Error()))
		}
	}
	return false
}

func (r *REPL) askApproval(req approval.Request) {
	r.endLine()
	if req.Preview != "" {
		fmt.Fprintln(r.out, r.style.output.Render(req.Preview))
	}
	if req.Kind == approval.KindQuestion {
		fmt.Fprint(r.out, r.style.question.Render(req.Description)+" ")
	} else {
		fmt.Fprint(r.out, r.style.question.Render(req.Description+"? [y/N]")+" ")
	}

	r.approving = &req
	if len(r.queued) > 0 {
		line := r.queued[0]
		r.queued = r.queued[1:]
		fmt.Fprintln(r.out, line)
		r.answer(line)
	} else if r.eof {
		fmt.Fprintln(r.out)
		r.answer("")
	}
}

func (r *REPL) handleStream(evt stream.Event) bool {
	switch evt.Kind {
	case stream.KindToken:
		fmt.Fprint(r.out, evt.Text)
		r.midLine = !strings.HasSuffix(evt.Text, "\n")
	case stream.KindTokenEnd:
		r.endLine()
	case stream.KindToolStart:
		r.endLine()
		args := evt.Text
		if len(args) > maxToolArgsShown {
			args = args[:maxToolArgsShown] + "..."
		}
		fmt.Fprintln(r.out, r.style.tool.Render(fmt.Sprintf("* %s(%s)", evt.ToolName, args)))
	case stream.KindToolOutput:
		r.endLine()
		fmt.Fprintln(r.out, r.style.output.Render("  | "+evt.Text))
	case stream.KindToolEnd:
		if evt.Text == "ok" {
			fmt.Fprintln(r.out, r.style.ok.Render("  done"))
		} else {
			fmt.Fprintln(r.out, r.style.failed.Render("  failed"))
		}
	case stream.KindDiagnostic:
		r.endLine()
		fmt.Fprintln(r.out, r.style.failed.Render("  "+evt.Text))
	case stream.KindCompression, stream.KindInfo:
		r.endLine()
		fmt.Fprintln(r.out, r.style.notice.Render(evt.Text))
	case stream.KindTurnEnd:
		r.endLine()
		if evt.Text != "" {
			fmt.Fprintln(r.out, r.style.failed.Render("Error: "+evt.Text))
		}
		r.running = false
		return r.nextInput()
	}
	return false
}

// nextInput replays a line typed during the turn, if any.
func (r *REPL) nextInput() bool {
	for len(r.queued) > 0 {
		line := r.queued[0]
		r.queued = r.queued[1:]
		if strings.TrimSpace(line) == "" {
			continue
		}
		r.printPrompt()
		fmt.Fprintln(r.out, line)
		if r.submit(line) {
			return true
		}
		if r.running {
			return false
		}
	}
	if r.eof {
		return true
	}
	r.printPrompt()
	return false
}

func (r *REPL) endLine() {
	if r.midLine {
		fmt.Fprintln(r.out)
		r.midLine = false
	}
}

func (r *REPL) printPrompt() {
	fmt.Fprint(r.out, r.style.prompt.Render(">")+" ")
}
