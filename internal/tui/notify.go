package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
)

// Notifier turns session change callbacks into Bubble Tea messages. Signals
// coalesce: the model always re-reads the full list, so one pending signal is
// as good as many.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify has the signature of syncer.Options.OnChange and never blocks.
func (n *Notifier) Notify([]model.Task) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

type changedMsg struct{}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return changedMsg{}
	}
}
