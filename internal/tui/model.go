// Package tui is the live terminal view of a day: the minute grid, status
// totals and the programs that held focus.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/actionsum/activitylog/internal/clock"
	"github.com/actionsum/activitylog/internal/models"
)

const (
	refreshInterval = time.Second
	loadTimeout     = 5 * time.Second
	maxPrograms     = 8
)

// Source is the read side the view renders from.
type Source interface {
	Snapshot(ctx context.Context, day time.Time) (models.Snapshot, error)
	Programs(ctx context.Context, day time.Time) ([]models.ProgramSummary, error)
}

type tickMsg time.Time

type dataMsg struct {
	day      time.Time
	snapshot models.Snapshot
	programs []models.ProgramSummary
	err      error
}

// Model is the bubbletea model of the watch view.
type Model struct {
	source   Source
	clock    clock.Clock
	day      time.Time
	snapshot models.Snapshot
	programs []models.ProgramSummary
	loaded   bool
	err      error
	width    int
}

// New returns a model showing today.
func New(source Source, c clock.Clock) Model {
	if c == nil {
		c = clock.Real{}
	}
	return Model{
		source: source,
		clock:  c,
		day:    models.StartOfDay(c.Now()),
	}
}

// Day is the day currently displayed.
func (m Model) Day() time.Time {
	return m.day
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) load() tea.Cmd {
	day := m.day
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		msg := dataMsg{day: day}
		msg.snapshot, msg.err = source.Snapshot(ctx, day)
		if msg.err != nil {
			return msg
		}
		msg.programs, msg.err = source.Programs(ctx, day)
		return msg
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			return m.show(m.day.AddDate(0, 0, -1))
		case "right", "l":
			next := m.day.AddDate(0, 0, 1)
			if next.After(m.clock.Now()) {
				return m, nil
			}
			return m.show(next)
		case "t":
			return m.show(models.StartOfDay(m.clock.Now()))
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		return m, tea.Batch(m.load(), tickCmd())
	case dataMsg:
		// A slow load for a day the user already left is dropped.
		if !msg.day.Equal(m.day) {
			return m, nil
		}
		m.err = msg.err
		if msg.err == nil {
			m.snapshot = msg.snapshot
			m.programs = msg.programs
			m.loaded = true
		}
	}
	return m, nil
}

func (m Model) show(day time.Time) (tea.Model, tea.Cmd) {
	if day.Equal(m.day) {
		return m, nil
	}
	m.day = day
	m.loaded = false
	m.snapshot = models.Snapshot{}
	m.programs = nil
	return m, m.load()
}

// Run starts the view on the terminal and blocks until the user quits.
func Run(source Source) error {
	p := tea.NewProgram(New(source, clock.Real{}), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
