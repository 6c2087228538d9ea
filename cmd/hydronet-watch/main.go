// hydronet-watch runs a simulation and renders its progress live: lifecycle
// state, per-timestep progress, and warnings as the engine reports them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/events"
	"github.com/dd0wney/cluso-hydronet/pkg/logging"
	"github.com/dd0wney/cluso-hydronet/pkg/pipeline"
	"github.com/dd0wney/cluso-hydronet/pkg/sim"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	stateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0000AA")).
			Padding(0, 2)

	doneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Cancel key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Cancel: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cancel run"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Cancel, k.Quit}}
}

type eventMsg events.Event

type model struct {
	run      *sim.Run
	sub      *events.Subscription
	progress progress.Model
	help     help.Model
	keys     keyMap

	state    string
	step     int
	total    int
	warnings []string
	width    int
}

func waitForEvent(sub *events.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Channel()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func initialModel(run *sim.Run, sub *events.Subscription, total int) model {
	return model{
		run:      run,
		sub:      sub,
		progress: progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     keys,
		state:    string(sim.StateIdle),
		total:    total,
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.sub)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.run.Cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.run.Cancel()
			return m, waitForEvent(m.sub)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 8
		return m, nil

	case eventMsg:
		switch msg.Type {
		case events.TypeStateChanged:
			m.state = msg.State
			if sim.State(msg.State).Terminal() {
				return m, tea.Quit
			}
		case events.TypeProgress:
			m.step = msg.Step
			m.total = msg.Total
		case events.TypeDiagnostic:
			m.warnings = append(m.warnings, msg.Message)
		}
		return m, waitForEvent(m.sub)

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hydronet run "+m.run.ID()) + "\n\n")

	state := sim.State(m.state)
	switch state {
	case sim.StateSucceeded:
		b.WriteString("  " + doneStyle.Render("✓ "+m.state) + "\n")
	case sim.StateFailed, sim.StateCancelled:
		b.WriteString("  " + errorStyle.Render("✗ "+m.state) + "\n")
	default:
		b.WriteString("  " + stateStyle.Render(m.state) + "\n")
	}

	if m.total > 0 {
		b.WriteString("\n  " + m.progress.ViewAs(float64(m.step)/float64(m.total)))
		b.WriteString(fmt.Sprintf("  step %d/%d\n", m.step, m.total))
	}

	for _, w := range m.warnings {
		b.WriteString(warnStyle.Render("⚠ "+w) + "\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)) + "\n")
	return b.String()
}

func main() {
	snapshotPath := flag.String("snapshot", "", "snapshot YAML file")
	configPath := flag.String("config", "", "run configuration YAML file")
	tolerance := flag.Float64("tolerance", pipeline.DefaultTolerance, "snapping tolerance in coordinate units")
	flag.Parse()

	if *snapshotPath == "" || *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: hydronet-watch --snapshot net.yaml --config run.yaml")
		os.Exit(1)
	}

	snap, err := pipeline.LoadSnapshot(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := pipeline.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	netModel, report, err := pipeline.New(pipeline.WithLogger(logging.NewNopLogger())).
		BuildModel(snap, cfg, pipeline.Options{Tolerance: *tolerance})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	if report.Blocking() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", report.Err())
		os.Exit(1)
	}

	bus := events.NewBus()
	defer bus.Shutdown()

	orch := sim.NewOrchestrator(engine.NewHydraulic(),
		sim.WithBus(bus),
		sim.WithLogger(logging.NewNopLogger()))

	// Subscribe before submitting: small networks finish in microseconds,
	// and events published with no subscriber are dropped.
	sub, err := bus.Subscribe(context.Background(), events.TopicRuns)
	if err != nil || sub == nil {
		fmt.Fprintln(os.Stderr, "Error: could not subscribe to run events")
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	run, err := orch.Submit(context.Background(), netModel, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(run, sub, len(cfg.Steps())))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	<-run.Done()
	st := run.Status()
	if st.State == sim.StateSucceeded {
		fmt.Printf("run %s succeeded in %s\n", run.ID(), st.Finished.Sub(st.Started).Round(time.Millisecond))
	} else {
		fmt.Printf("run %s %s", run.ID(), st.State)
		if st.Err != nil {
			fmt.Printf(": %v", st.Err)
		}
		fmt.Println()
	}
}
