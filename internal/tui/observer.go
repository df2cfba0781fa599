package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/session"
)

// SignalRelay bridges the session bus into Bubble Tea messages. The bus
// delivers synchronously on the emitter's goroutine, so signals are
// buffered through a channel and drained with WaitForSignalCmd.
type SignalRelay struct {
	ch  chan session.Signal
	sub *session.Subscription
}

// NewSignalRelay subscribes to the bus. Close must be called on teardown
// to deregister the listener.
func NewSignalRelay(bus *session.Bus) *SignalRelay {
	r := &SignalRelay{ch: make(chan session.Signal, 8)}
	r.sub = bus.Subscribe(func(sig session.Signal) {
		select {
		case r.ch <- sig:
		default: // Non-blocking if channel full
		}
	})
	return r
}

// WaitCmd returns a command that delivers the next signal as a message.
// Re-issue it after each SessionSignalMsg to keep listening.
func (r *SignalRelay) WaitCmd() tea.Cmd {
	return func() tea.Msg {
		sig, ok := <-r.ch
		if !ok {
			return nil
		}
		return SessionSignalMsg{Signal: sig}
	}
}

// Close deregisters from the bus and releases the channel.
func (r *SignalRelay) Close() {
	r.sub.Cancel()
	close(r.ch)
}
