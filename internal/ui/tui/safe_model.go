package tui

import (
	"fmt"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// safeModel keeps a rendering bug from killing a run that is still executing
// shell steps: panics are logged and the screen degrades instead of crashing.
type safeModel struct {
	m   model
	log *zap.Logger
}

func wrapSafe(m model, log *zap.Logger) safeModel {
	if log == nil {
		log = zap.NewNop()
	}
	return safeModel{m: m, log: log}
}

func (s safeModel) Init() tea.Cmd {
	return s.m.Init()
}

func (s safeModel) Update(msg tea.Msg) (tm tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic recovered",
				zap.String("where", "tui.update"),
				zap.String("panic", fmt.Sprint(r)),
				zap.String("stack", string(debug.Stack())),
			)
			s.m.notice = "Unexpected error (see logs)"
			tm = s
			cmd = listenRunner(s.m.msgCh)
		}
	}()

	inner, c := s.m.Update(msg)

	if mm, ok := inner.(model); ok {
		s.m = mm
	} else if sm, ok := inner.(safeModel); ok {
		s = sm
	}

	return s, c
}

func (s safeModel) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic recovered",
				zap.String("where", "tui.view"),
				zap.String("panic", fmt.Sprint(r)),
				zap.String("stack", string(debug.Stack())),
			)
			out = "Unexpected error (see logs)"
		}
	}()
	return s.m.View()
}

var _ tea.Model = (*safeModel)(nil)
