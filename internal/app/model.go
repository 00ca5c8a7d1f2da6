package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigneshmj1997/CodingAgent/internal/dispatcher"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/internal/update"
	"github.com/vigneshmj1997/CodingAgent/ui/components"
)

// AppModel is the Bubble Tea model of the full-screen console.
type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	markdown   components.Markdown
	ready      bool
}

func NewAppModel(disp *dispatcher.EventDispatcher) *AppModel {
	input := textinput.New()
	input.Placeholder = "Ask swi to read, change or run something"
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &AppModel{
		appModel:   models.NewAppModel(),
		dispatcher: disp,
		input:      input,
		viewport:   viewport.New(80, 20),
		spinner:    spin,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.dispatcher.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	eventBus := m.dispatcher.GetEventBus()

	switch msg := msg.(type) {
	case update.CoreEventMsg:
		// Handle core events and continue listening
		cmds = append(cmds, update.HandleCoreEvent(&m.appModel, msg), m.dispatcher.ListenForCoreEvents())
		m.refresh()
		return m, tea.Batch(cmds...)

	case dispatcher.BusClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		cmd, handled := update.HandleKeyMsgWithEventBus(&m.appModel, msg, m.input.Value(), eventBus)
		if handled {
			if msg.Type == tea.KeyEnter {
				m.input.SetValue("")
			}
			m.refresh()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		update.HandleUpdateWithEventBus(&m.appModel, msg)
		m.ready = true
		m.input.Width = max(msg.Width-8, 10)
		m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// refresh lays out the transcript above the input and status bars.
func (m *AppModel) refresh() {
	width := m.appModel.Width
	if width == 0 {
		width = 80
	}
	chrome := strings.Count(m.footer(), "\n") + 1
	m.viewport.Width = width
	m.viewport.Height = max(m.appModel.Height-chrome, 3)

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(components.RenderMessages(m.appModel.Entries, width, &m.markdown))
	if atBottom || m.appModel.Processing {
		m.viewport.GotoBottom()
	}
}

func (m *AppModel) footer() string {
	width := m.appModel.Width
	if width == 0 {
		width = 80
	}
	var b strings.Builder
	b.WriteString(components.RenderInput(m.input.View(), m.appModel.PendingApproval, width))
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.appModel.Status, m.appModel.Processing, m.spinner.View(), width))
	return b.String()
}

func (m *AppModel) View() string {
	if !m.ready {
		return "Starting..."
	}
	return m.viewport.View() + "\n" + m.footer()
}
