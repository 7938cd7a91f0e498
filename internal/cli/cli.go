package cli

import (
	"context"

	urfavecli "github.com/urfave/cli/v3"

	"github.com/jakzo/things/internal/commands/prepare"
	"github.com/jakzo/things/internal/commands/run"
	"github.com/jakzo/things/internal/config"
	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/printer"
	"github.com/jakzo/things/internal/tui"
)

// New builds the root command. The configuration is loaded before any
// subcommand runs, from --config or the default locations.
func New(version string) *urfavecli.Command {
	cfg := config.Default()
	var (
		noColor bool
		verbose bool
	)
	return &urfavecli.Command{
		Name:                  "package-splitter",
		Version:               version,
		Usage:                 "Publish every package of a monorepo as its own npm package",
		EnableShellCompletion: true,
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{
				Name:        "config",
				Usage:       "Path to the config file",
				DefaultText: config.FileYAML + " or " + config.FileTOML,
			},
			&urfavecli.BoolFlag{
				Name:        "no-color",
				Usage:       "Disable colored output",
				Destination: &noColor,
			},
			&urfavecli.BoolFlag{
				Name:        "verbose",
				Usage:       "Log every step",
				Destination: &verbose,
			},
		},
		Before: func(ctx context.Context, cmd *urfavecli.Command) (context.Context, error) {
			console.SetNoColor(noColor)
			printer.SetNoColor(noColor)
			console.SetVerbose(verbose)

			loaded, err := config.LoadConfigFn(cmd.String("config"))
			if err != nil {
				return ctx, err
			}
			*cfg = *loaded
			tui.SetTheme(cfg.Theme)
			return ctx, nil
		},
		Commands: []*urfavecli.Command{
			prepare.Run(cfg),
			run.Run(cfg),
		},
	}
}
