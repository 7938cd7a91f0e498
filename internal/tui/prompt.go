package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// ConfirmFn asks a yes/no question. It is a variable so tests can answer
// without a terminal.
var ConfirmFn = confirm

func confirm(title, description string) (bool, error) {
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Publish").
		Negative("Cancel").
		Value(&ok)
	err := huh.NewForm(huh.NewGroup(field)).WithTheme(currentThemeOrDefault()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, ErrAborted
	}
	return ok, err
}

// Spin runs action while showing a spinner titled title. Without an
// interactive terminal the action runs directly.
func Spin(ctx context.Context, title string, action func(ctx context.Context) error) error {
	if !IsInteractive() {
		return action(ctx)
	}
	return spinner.New().
		Title(" " + title).
		Context(ctx).
		ActionWithErr(action).
		Run()
}
