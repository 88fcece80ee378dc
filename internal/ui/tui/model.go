package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/opsprov/internal/provisioning"
)

// maxRecent bounds how many finished instances the dashboard lists.
const maxRecent = 8

// ActiveTask is an instance currently being provisioned.
type ActiveTask struct {
	Instance string
	Attempt  int
	Step     string
	Retrying bool
	Started  time.Time
}

// Outcome is a finished row shown in the recent list.
type Outcome struct {
	Instance string
	Status   provisioning.Outcome
	Attempts int
	Err      string
}

// Model is the Bubble Tea model for the provisioning dashboard.
type Model struct {
	Title string

	Total     int
	Completed int
	Success   int
	Failure   int
	Invalid   int
	Skipped   int

	// Active is keyed by instance, Order keeps first-seen order for display.
	Active map[string]*ActiveTask
	Order  []string
	Recent []Outcome

	StartTime time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width   int
	Height  int
	Err     error
	Done    bool
	Summary *provisioning.Summary
}

// NewModel creates a dashboard for a batch of total rows.
func NewModel(title string, total int) Model {
	return Model{
		Title:     title,
		Total:     total,
		Active:    make(map[string]*ActiveTask),
		StartTime: time.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case ProgressMsg:
		m.Completed = msg.Completed
		m.Total = msg.Total

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Summary = msg.Summary
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(e provisioning.Event) {
	if m.Active == nil {
		m.Active = make(map[string]*ActiveTask)
	}

	switch e.Type {
	case provisioning.EventTaskStarted:
		if _, ok := m.Active[e.Instance]; !ok {
			m.Order = append(m.Order, e.Instance)
		}
		m.Active[e.Instance] = &ActiveTask{Instance: e.Instance, Started: e.Timestamp}

	case provisioning.EventStepFinished:
		if t, ok := m.Active[e.Instance]; ok {
			t.Attempt = e.Attempt
			t.Step = e.Fields["step"]
			t.Retrying = false
		}

	case provisioning.EventTaskRetry:
		if t, ok := m.Active[e.Instance]; ok {
			t.Attempt = e.Attempt
			t.Retrying = true
		}

	case provisioning.EventTaskSucceeded:
		m.Success++
		m.finish(e, provisioning.OutcomeSuccess)

	case provisioning.EventTaskFailed:
		m.Failure++
		m.finish(e, provisioning.OutcomeFailure)

	case provisioning.EventValidationFailed:
		m.Invalid++
		m.finish(e, provisioning.OutcomeValidationFailure)

	case provisioning.EventTaskSkipped:
		m.Skipped++
		m.finish(e, provisioning.OutcomeSkipped)
	}
}

func (m *Model) finish(e provisioning.Event, status provisioning.Outcome) {
	delete(m.Active, e.Instance)
	for i, key := range m.Order {
		if key == e.Instance {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}

	o := Outcome{Instance: e.Instance, Status: status, Attempts: e.Attempt}
	if e.Err != nil {
		o.Err = e.Err.Error()
	}
	m.Recent = append(m.Recent, o)
	if len(m.Recent) > maxRecent {
		m.Recent = m.Recent[len(m.Recent)-maxRecent:]
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
