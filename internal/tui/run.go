package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"transcribe/internal/detail"
	"transcribe/internal/listsync"
)

// ErrNoTTY is returned when the dashboard is started without a terminal.
var ErrNoTTY = errors.New("dashboard requires an interactive terminal (TTY)")

// Run starts the dashboard and blocks until the user quits or ctx ends.
// The list synchronizer is started by the model and stopped on return.
func Run(ctx context.Context, deps Deps) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return ErrNoTTY
	}

	program := tea.NewProgram(NewModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	var unsubs []func()
	if deps.Sync != nil {
		unsubs = append(unsubs, deps.Sync.Subscribe(func(s listsync.State) { program.Send(listMsg(s)) }))
	}
	if deps.Detail != nil {
		unsubs = append(unsubs, deps.Detail.Subscribe(func(v detail.View) { program.Send(detailMsg(v)) }))
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
		if deps.Sync != nil {
			deps.Sync.Stop()
		}
		if deps.Detail != nil {
			deps.Detail.Close()
		}
	}()

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
