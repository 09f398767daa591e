// Package tui renders a live view of a matrix run: one line per scheduled
// job, updated as workers report progress. The screen exits on its own once
// the run finishes; a first q cancels the run, a second one force-quits.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bindkit/internal/domain"
)

type jobRow struct {
	job        string
	point      string
	status     domain.JobStatus // empty while the job is still running
	skipReason string
	durationMS int64
}

type model struct {
	theme Theme
	in    WatchInput

	msgCh  chan tea.Msg
	cancel context.CancelFunc

	spin  spinner.Model
	rows  []jobRow
	index map[string]int
	total int

	cancelling bool
	done       bool
	notice     string

	run     domain.RunArtifact
	savedID string
	runErr  error
}

// Watch drives the run to completion under a live screen and returns its
// outcome, exactly as a non-interactive execution would.
func Watch(ctx context.Context, in WatchInput) (domain.RunArtifact, string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgCh, _ := startRunAsync(runCtx, in.Runner, in.Input, in.Logger)
	m := newModel(in, msgCh, cancel)

	p := tea.NewProgram(wrapSafe(m, in.Logger), tea.WithAltScreen())
	out, err := p.Run()
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	final, ok := out.(safeModel)
	if !ok {
		return domain.RunArtifact{}, "", errors.New("unexpected final model")
	}
	return final.m.run, final.m.savedID, final.m.runErr
}

func newModel(in WatchInput, msgCh chan tea.Msg, cancel context.CancelFunc) model {
	t := DefaultTheme()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = t.Running

	return model{
		theme:  t,
		in:     in,
		msgCh:  msgCh,
		cancel: cancel,
		spin:   sp,
		index:  map[string]int{},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, listenRunner(m.msgCh))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancelling {
				// Second request: stop waiting for jobs to wind down.
				return m, tea.Quit
			}
			m.cancelling = true
			m.cancel()
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case runnerEventMsg:
		m.apply(domain.RunEvent(msg))
		return m, listenRunner(m.msgCh)

	case runnerDoneMsg:
		m.done = true
		m.run = msg.run
		m.savedID = msg.id
		m.runErr = msg.err
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			// Keep the screen up so the failure is readable.
			m.notice = userMessage(msg.err)
			return m, nil
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *model) apply(ev domain.RunEvent) {
	m.total = ev.Total
	key := ev.JobName + "|" + ev.PointKey

	i, ok := m.index[key]
	if !ok {
		m.rows = append(m.rows, jobRow{job: ev.JobName, point: ev.PointKey})
		i = len(m.rows) - 1
		m.index[key] = i
	}

	if ev.Type == domain.EventJobFinished {
		m.rows[i].status = ev.Status
		m.rows[i].skipReason = ev.SkipReason
		m.rows[i].durationMS = ev.DurationMS
	}
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)

	header := m.theme.Title.Render("bindkit run") + "\n" +
		m.theme.Subtitle.Render(m.in.PipelineName+" · "+m.in.Environment) + "\n"

	var lines []string
	for _, r := range m.rows {
		lines = append(lines, m.rowLine(r))
	}
	if len(lines) == 0 {
		lines = append(lines, m.theme.Running.Render(m.spin.View()+" preparing plan"))
	}

	footer := m.summaryLine()
	if m.notice != "" {
		footer += "\n" + m.theme.Failed.Render(m.notice)
	}

	help := m.theme.Help.Render("q cancel")
	if m.cancelling {
		help = m.theme.Help.Render("cancelling, waiting for running jobs")
	}
	if m.done {
		help = m.theme.Help.Render("press any key to exit")
	}

	return wrap.Render(header + "\n" +
		m.theme.Card.Render(strings.Join(lines, "\n")) + "\n" +
		footer + "\n" + help)
}

func (m model) rowLine(r jobRow) string {
	name := r.job
	if r.point != "" {
		name += " " + r.point
	}

	switch r.status {
	case domain.StatusPassed:
		return m.theme.Passed.Render("✔ "+name) + m.theme.Subtitle.Render(" "+fmtMillis(r.durationMS))
	case domain.StatusFailed:
		return m.theme.Failed.Render("✘ "+name) + m.theme.Subtitle.Render(" "+fmtMillis(r.durationMS))
	case domain.StatusSkipped:
		line := m.theme.Skipped.Render("↷ " + name)
		if r.skipReason != "" {
			line += m.theme.Subtitle.Render(" " + clampString(r.skipReason, 60))
		}
		return line
	default:
		return m.spin.View() + " " + m.theme.Running.Render(name)
	}
}

func (m model) summaryLine() string {
	var passed, failed, skipped, running int
	for _, r := range m.rows {
		switch r.status {
		case domain.StatusPassed:
			passed++
		case domain.StatusFailed:
			failed++
		case domain.StatusSkipped:
			skipped++
		default:
			running++
		}
	}

	finished := passed + failed + skipped
	parts := []string{
		m.theme.Passed.Render(fmt.Sprintf("%d passed", passed)),
		m.theme.Failed.Render(fmt.Sprintf("%d failed", failed)),
		m.theme.Skipped.Render(fmt.Sprintf("%d skipped", skipped)),
	}
	line := strings.Join(parts, m.theme.Subtitle.Render(" / "))
	if running > 0 {
		line += m.theme.Running.Render(fmt.Sprintf("  %d running", running))
	}
	if m.total > 0 {
		line += m.theme.Subtitle.Render(fmt.Sprintf("  %d of %d done", finished, m.total))
	}
	return line
}
