package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/quicknote/internal/noteservice"
)

// Run starts the program on the terminal and blocks until the user quits or
// ctx is cancelled. bridge may be nil when the session was built without one.
func Run(ctx context.Context, svc *noteservice.Service, bridge *Bridge, opts ...Option) error {
	p := tea.NewProgram(New(ctx, svc, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if bridge != nil {
		bridge.attach(p)
		defer bridge.attach(nil)
	}

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
