package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
)

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleSubmit processes one line of input. A pending approval takes the
// line as its answer; otherwise it becomes a user message.
func HandleSubmit(appModel *models.AppModel, input string, eb *eventbus.EventBus) tea.Cmd {
	if req := appModel.PendingApproval; req != nil {
		appModel.PendingApproval = nil
		appModel.Add(models.Entry{Kind: models.EntryNotice, Content: "> " + input})
		if err := eb.SendToCore(eventbus.ApprovalResponseEvent{ID: req.ID, Answer: input}); err != nil {
			appModel.Status = "Error sending answer: " + err.Error()
		}
		return nil
	}

	text := strings.TrimSpace(input)
	switch {
	case text == "":
		return nil
	case strings.EqualFold(text, "exit"):
		return tea.Quit
	case appModel.Processing:
		appModel.Status = "Still working, press Esc to cancel"
		return nil
	}

	if err := eb.SendToCore(eventbus.SendMessageEvent{Message: text}); err != nil {
		appModel.Status = "Error sending message: " + err.Error()
		return nil
	}
	appModel.Add(models.Entry{Kind: models.EntryUser, Content: text})
	appModel.Processing = true
	appModel.Status = "Processing"
	return nil
}

// HandleCancel asks the core to abandon the running turn.
func HandleCancel(appModel *models.AppModel, eb *eventbus.EventBus) {
	if !appModel.Processing {
		return
	}
	if err := eb.SendToCore(eventbus.CancelTurnEvent{}); err != nil {
		appModel.Status = "Error cancelling: " + err.Error()
		return
	}
	appModel.Status = "Cancelling"
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.NoticeEvent:
		appModel.Add(models.Entry{Kind: models.EntryNotice, Content: event.Text})

	case eventbus.StateUpdateEvent:
		appModel.Processing = event.Processing
		switch {
		case event.Error != nil:
			appModel.Status = "Error: " + event.Error.Error()
		case event.Processing:
			appModel.Status = "Processing"
		default:
			appModel.Status = "Ready"
		}

	case eventbus.ApprovalRequestEvent:
		req := event.Request
		appModel.PendingApproval = &req
		appModel.Status = "Waiting for your answer"

	case eventbus.StreamEvent:
		handleStreamEvent(appModel, event.Event)
	}
	return nil
}

func handleStreamEvent(appModel *models.AppModel, evt stream.Event) {
	switch evt.Kind {
	case stream.KindToken:
		appModel.AppendToken(evt.Text)
	case stream.KindTokenEnd:
		appModel.EndStream()
	case stream.KindToolStart:
		appModel.EndStream()
		appModel.Add(models.Entry{Kind: models.EntryTool, Title: evt.ToolName, Content: evt.Text})
	case stream.KindToolOutput:
		if tool := appModel.Tool(evt.ToolName); tool != nil {
			tool.Lines = append(tool.Lines, evt.Text)
		}
	case stream.KindDiagnostic:
		if tool := appModel.Tool(evt.ToolName); tool != nil {
			tool.Lines = append(tool.Lines, evt.Text)
			tool.Failed = true
		} else {
			appModel.Add(models.Entry{Kind: models.EntryError, Content: evt.Text})
		}
	case stream.KindToolEnd:
		if tool := appModel.Tool(evt.ToolName); tool != nil {
			tool.Failed = tool.Failed || evt.Text != "ok"
			tool.Done = true
		}
	case stream.KindCompression, stream.KindInfo:
		appModel.Add(models.Entry{Kind: models.EntryNotice, Content: evt.Text})
	case stream.KindTurnEnd:
		appModel.EndStream()
		appModel.Processing = false
		appModel.PendingApproval = nil
		if evt.Text != "" {
			appModel.Add(models.Entry{Kind: models.EntryError, Content: evt.Text})
			appModel.Status = "Error: " + evt.Text
		} else {
			appModel.Status = "Ready"
		}
	}
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}
