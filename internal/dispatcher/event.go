package dispatcher

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/update"
)

// EventDispatcher turns core events into Bubble Tea messages.
type EventDispatcher struct {
	eventBus *eventbus.EventBus
}

func NewEventDispatcher(eventBus *eventbus.EventBus) *EventDispatcher {
	return &EventDispatcher{eventBus: eventBus}
}

// BusClosedMsg is delivered once the core side has shut down.
type BusClosedMsg struct{}

// ListenForCoreEvents waits for the next core event. The model must issue
// it again after every CoreEventMsg to keep listening.
func (ed *EventDispatcher) ListenForCoreEvents() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ed.eventBus.CoreToUI()
		if !ok {
			return BusClosedMsg{}
		}
		return update.CoreEventMsg{Event: event}
	}
}

func (ed *EventDispatcher) GetEventBus() *eventbus.EventBus {
	return ed.eventBus
}
