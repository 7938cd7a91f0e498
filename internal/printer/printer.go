// Package printer writes the user-facing report lines of the CLI. Logs
// go through the console package instead.
package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	faintStyle   = lipgloss.NewStyle().Faint(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	output io.Writer = os.Stdout
)

// SetOutput redirects the Print functions.
func SetOutput(w io.Writer) {
	output = w
}

// SetNoColor strips colors and text attributes from every style.
func SetNoColor(noColor bool) {
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Faint renders secondary details, such as unchanged packages.
func Faint(text string) string { return faintStyle.Render(text) }

// Bold renders headings.
func Bold(text string) string { return boldStyle.Render(text) }

// Success renders in green.
func Success(text string) string { return successStyle.Render(text) }

// Error renders in red.
func Error(text string) string { return errorStyle.Render(text) }

// Warning renders in yellow.
func Warning(text string) string { return warningStyle.Render(text) }

// Info renders in cyan.
func Info(text string) string { return infoStyle.Render(text) }

func printLine(render func(string) string, text string) {
	fmt.Fprintln(output, render(text))
}

func PrintFaint(text string)   { printLine(Faint, text) }
func PrintBold(text string)    { printLine(Bold, text) }
func PrintSuccess(text string) { printLine(Success, text) }
func PrintError(text string)   { printLine(Error, text) }
func PrintWarning(text string) { printLine(Warning, text) }
func PrintInfo(text string)    { printLine(Info, text) }
