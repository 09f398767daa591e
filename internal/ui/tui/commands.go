package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"bindkit/internal/domain"
	"bindkit/internal/usecase"
)

// listenRunner waits for the next message from the run goroutine. The model
// re-arms it after every event until the done message arrives.
func listenRunner(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return runnerDoneMsg{err: errors.New("runner channel closed")}
		}
		return msg
	}
}

// startRunAsync launches the matrix run in the background and bridges its
// progress events into bubbletea messages. The done message is always the
// last one on the channel, after every event has been forwarded.
func startRunAsync(ctx context.Context, uc *usecase.RunMatrix, in usecase.RunMatrixInput, log *zap.Logger) (chan tea.Msg, tea.Cmd) {
	msgCh := make(chan tea.Msg, 32)
	events := make(chan domain.RunEvent, 32)
	in.Events = events

	if log == nil {
		log = zap.NewNop()
	}

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range events {
			msgCh <- runnerEventMsg(ev)
		}
	}()

	go func() {
		defer close(msgCh)

		log.Info("run started",
			zap.String("pipeline", in.PipelinePath),
			zap.String("environment", in.Environment),
			zap.Int("workers", in.Workers),
		)

		run, id, err := uc.Execute(ctx, in)
		close(events)
		<-forwarded

		if err != nil {
			log.Error("run failed", zap.Error(err), zap.String("saved_id", id))
		} else {
			passed, failed, skipped := run.CountByStatus()
			log.Info("run finished",
				zap.String("saved_id", id),
				zap.Int("passed", passed),
				zap.Int("failed", failed),
				zap.Int("skipped", skipped),
			)
		}

		msgCh <- runnerDoneMsg{run: run, id: id, err: err}
	}()

	return msgCh, listenRunner(msgCh)
}
