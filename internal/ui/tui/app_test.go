package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"bindkit/internal/domain"
)

func testModel() model {
	return newModel(WatchInput{PipelineName: "liberfa CI", Environment: "dev"},
		make(chan tea.Msg, 1),
		func() {})
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

func TestModelTracksJobLifecycle(t *testing.T) {
	m := testModel()

	m = update(t, m, runnerEventMsg(domain.RunEvent{
		Type:     domain.EventJobStarted,
		JobName:  "test",
		PointKey: "python=3.12 setup=system",
		Index:    1,
		Total:    4,
	}))
	if len(m.rows) != 1 || m.rows[0].status != "" {
		t.Fatalf("rows after start = %+v", m.rows)
	}

	m = update(t, m, runnerEventMsg(domain.RunEvent{
		Type:       domain.EventJobFinished,
		JobName:    "test",
		PointKey:   "python=3.12 setup=system",
		Index:      1,
		Total:      4,
		Status:     domain.StatusPassed,
		DurationMS: 1500,
	}))
	if len(m.rows) != 1 {
		t.Fatalf("finish event created a duplicate row: %+v", m.rows)
	}
	if m.rows[0].status != domain.StatusPassed || m.rows[0].durationMS != 1500 {
		t.Errorf("row = %+v", m.rows[0])
	}

	view := m.View()
	for _, want := range []string{"liberfa CI", "test python=3.12 setup=system", "1.5s", "1 passed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelShowsSkipReason(t *testing.T) {
	m := testModel()
	m = update(t, m, runnerEventMsg(domain.RunEvent{
		Type:       domain.EventJobFinished,
		JobName:    "verify",
		PointKey:   "setup=system",
		Total:      1,
		Status:     domain.StatusSkipped,
		SkipReason: "system liberfa 1.6.0 is older than 2.0.0",
	}))

	view := m.View()
	if !strings.Contains(view, "older than 2.0.0") {
		t.Errorf("view missing skip reason:\n%s", view)
	}
	if !strings.Contains(view, "1 skipped") {
		t.Errorf("view missing skip tally:\n%s", view)
	}
}

func TestModelCancelsOnQ(t *testing.T) {
	cancelled := false
	m := newModel(WatchInput{}, make(chan tea.Msg, 1), func() { cancelled = true })

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !cancelled {
		t.Fatal("q should cancel the run context")
	}
	if !m.cancelling {
		t.Fatal("model should enter the cancelling state")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("second q should quit")
	}
	_ = next
}

func TestModelQuitsWhenRunSucceeds(t *testing.T) {
	m := testModel()

	next, cmd := m.Update(runnerDoneMsg{run: domain.RunArtifact{ID: "abc"}, id: "saved"})
	out := next.(model)
	if !out.done || out.savedID != "saved" {
		t.Errorf("done state = %+v", out)
	}
	if cmd == nil {
		t.Fatal("successful completion should quit the program")
	}
}

func TestModelHoldsScreenOnRunError(t *testing.T) {
	m := testModel()

	next, cmd := m.Update(runnerDoneMsg{err: &domain.OpError{
		Op:   "yamlmanifest.load",
		Kind: domain.KindNotFound,
	}})
	out := next.(model)
	if cmd != nil {
		t.Fatal("errored completion should hold the screen for a key press")
	}
	if out.notice != "Pipeline not found" {
		t.Errorf("notice = %q", out.notice)
	}

	_, cmd = out.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if cmd == nil {
		t.Fatal("any key should quit once the run is done")
	}
}

func TestModelQuitsSilentlyOnCancel(t *testing.T) {
	m := testModel()
	m.cancelling = true

	next, cmd := m.Update(runnerDoneMsg{err: context.Canceled})
	out := next.(model)
	if cmd == nil {
		t.Fatal("cancelled completion should quit")
	}
	if out.notice != "" {
		t.Errorf("cancel should not raise a notice, got %q", out.notice)
	}
}
