// Package progress shows a spinner with live table counts while a QC run
// is in progress on an interactive terminal.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/t968rs/FEMA-Prod-updates/pkg/qc"
)

type (
	tableStartedMsg  string
	tableFinishedMsg qc.TableResult
	doneMsg          struct{}
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type model struct {
	spinner  spinner.Model
	active   []string
	done     int
	findings int
	cancel   context.CancelFunc
	quitting bool
}

func newModel(cancel context.CancelFunc) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return model{spinner: s, cancel: cancel}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			return m, tea.Quit
		}
	case tableStartedMsg:
		m.active = append(m.active, string(msg))
	case tableFinishedMsg:
		m.active = slices.DeleteFunc(m.active, func(t string) bool { return t == msg.Table })
		m.done++
		m.findings += len(msg.Findings)
		return m, tea.Println(finishedLine(qc.TableResult(msg)))
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	current := "selecting tables"
	if len(m.active) > 0 {
		current = strings.Join(m.active, ", ")
	}
	return fmt.Sprintf("%s Validating %s %s\n", m.spinner.View(), current,
		mutedStyle.Render(fmt.Sprintf("(%d done, %d findings)", m.done, m.findings)))
}

func finishedLine(r qc.TableResult) string {
	if n := len(r.Findings); n > 0 {
		return errorStyle.Render("✗") + fmt.Sprintf(" %s: %d findings", r.Table, n)
	}
	return okStyle.Render("✓") + fmt.Sprintf(" %s: %s", r.Table, r.Status)
}

// Tracker drives the spinner from runner notifications. It implements
// qc.Observer and may be called from several goroutines.
type Tracker struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// Start runs the spinner on out until Stop is called. Pressing ctrl+c
// calls cancel.
func Start(ctx context.Context, out io.Writer, cancel context.CancelFunc, opts ...tea.ProgramOption) *Tracker {
	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, opts...)
	t := &Tracker{
		program: tea.NewProgram(newModel(cancel), opts...),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		_, t.err = t.program.Run()
	}()
	return t
}

// TableStarted implements qc.Observer.
func (t *Tracker) TableStarted(table string) {
	t.program.Send(tableStartedMsg(table))
}

// TableFinished implements qc.Observer.
func (t *Tracker) TableFinished(result qc.TableResult) {
	t.program.Send(tableFinishedMsg(result))
}

// Stop clears the spinner and waits for the program to exit.
func (t *Tracker) Stop() error {
	t.program.Send(doneMsg{})
	<-t.done
	if t.err != nil && !isContextDone(t.err) {
		return fmt.Errorf("progress display: %w", t.err)
	}
	return nil
}

func isContextDone(err error) bool {
	return errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) || errors.Is(err, context.Canceled)
}
