package update

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// HandleKeyMsgWithEventBus handles the keys the app reacts to itself. The
// input line is passed in because the text field owns it.
func HandleKeyMsgWithEventBus(appModel *models.AppModel, keyMsg tea.KeyMsg, input string, eb *eventbus.EventBus) (tea.Cmd, bool) {
	switch keyMsg.Type {
	case tea.KeyCtrlC:
		return tea.Quit, true
	case tea.KeyEsc:
		HandleCancel(appModel, eb)
		return nil, true
	case tea.KeyEnter:
		return HandleSubmit(appModel, input, eb), true
	}
	return nil, false
}

// HandleUpdateWithEventBus applies messages that only touch the app model.
func HandleUpdateWithEventBus(appModel *models.AppModel, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, msg)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, msg)
	}
	return nil
}
