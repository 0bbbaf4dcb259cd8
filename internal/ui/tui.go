package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/pkg/provider"
)

// TUIRenderer draws a spinner and a progress bar per provider with
// bubbletea. The view is cleared when rendering stops.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	model   *refreshModel
	program *tea.Program
	done    chan struct{}
	stopped bool
}

// NewTUIRenderer creates an interactive renderer writing to cfg.Output.
func NewTUIRenderer(cfg Config) *TUIRenderer {
	return &TUIRenderer{
		cfg:   cfg,
		model: newRefreshModel(cfg),
		done:  make(chan struct{}),
	}
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}
	r.program = tea.NewProgram(r.model,
		tea.WithOutput(r.cfg.Output),
		tea.WithContext(ctx))

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// Update implements Renderer.
func (r *TUIRenderer) Update(ev provider.Progress) {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program != nil {
		program.Send(progressMsg(ev))
	}
}

// Stop implements Renderer. It waits at most two seconds for the program
// to exit.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil || r.stopped {
		return nil
	}
	r.stopped = true
	r.program.Send(doneMsg{})

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		r.program.Kill()
	}
	return nil
}

type (
	progressMsg provider.Progress
	doneMsg     struct{}
)

// refreshModel is the bubbletea model of a refresh.
type refreshModel struct {
	events      map[string]provider.Progress
	order       []string
	spinner     spinner.Model
	bar         progress.Model
	styles      output.Styles
	interrupt   func()
	done        bool
	interrupted bool
}

func newRefreshModel(cfg Config) *refreshModel {
	styles := output.DefaultStyles()
	if cfg.NoColor || output.DetectNoColor() {
		styles = output.NoColorStyles()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Success

	bar := progress.New(
		progress.WithSolidFill(output.ColorGreen),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &refreshModel{
		events:    make(map[string]provider.Progress),
		spinner:   s,
		bar:       bar,
		styles:    styles,
		interrupt: cfg.Interrupt,
	}
}

// Init implements tea.Model.
func (m *refreshModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *refreshModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			if m.interrupt != nil {
				m.interrupt()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(20, min(60, msg.Width-40))

	case progressMsg:
		ev := provider.Progress(msg)
		if _, seen := m.events[ev.Provider]; !seen {
			m.order = append(m.order, ev.Provider)
		}
		m.events[ev.Provider] = ev

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *refreshModel) View() string {
	if m.done {
		return ""
	}
	if m.interrupted {
		return "Cancelled.\n"
	}
	if len(m.order) == 0 {
		return m.spinner.View() + " Refreshing...\n"
	}

	width := 0
	for _, id := range m.order {
		width = max(width, lipgloss.Width(id))
	}

	var sb strings.Builder
	for _, id := range m.order {
		ev := m.events[id]
		fmt.Fprintf(&sb, "%s %s  %-8s  ",
			m.spinner.View(),
			m.styles.Title.Render(fmt.Sprintf("%-*s", width, id)),
			StageLabel(ev.Stage))
		if ev.Total > 0 {
			fmt.Fprintf(&sb, "%s %3.0f%%  %s",
				m.bar.ViewAs(ev.Fraction()),
				ev.Fraction()*100,
				m.styles.Detail.Render(fmt.Sprintf("%d/%d", ev.Current, ev.Total)))
		} else {
			sb.WriteString(m.styles.Detail.Render(fmt.Sprintf("%d found", ev.Current)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
