package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jakzo/things/internal/config"
	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/printer"
	"github.com/jakzo/things/internal/runner"
)

// Run returns the "run" command.
func Run(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a shell command in every prepared package directory",
		UsageText: "package-splitter run -c <command> [-p <package>...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output-dir",
				Aliases:     []string{"o"},
				Usage:       "Path to the prepared packages",
				DefaultText: config.DefaultOutputDir,
			},
			&cli.StringFlag{
				Name:     "command",
				Aliases:  []string{"c"},
				Usage:    "Command to run in each package directory",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "package",
				Aliases: []string{"p"},
				Usage:   "Name or glob of a package to run the command in (repeatable, default all)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runCmd(ctx, cmd, cfg)
		},
	}
}

func runCmd(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	outputDir := cfg.OutputDir
	if cmd.IsSet("output-dir") {
		outputDir = cmd.String("output-dir")
	}
	if !filepath.IsAbs(outputDir) && cfg.RootDir != "" {
		outputDir = filepath.Join(cfg.RootDir, outputDir)
	}
	outputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}

	r := &runner.Runner{FS: core.NewOSFileSystem(), Stdout: cmd.Root().Writer, Stderr: cmd.Root().ErrWriter}
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	res, err := r.RunInPackages(ctx, outputDir, cmd.String("command"), cmd.StringSlice("package"))
	if err != nil {
		return err
	}
	for _, f := range res.Unmatched {
		printer.PrintWarning(fmt.Sprintf("No package matched %q", f))
	}
	if len(res.Ran) == 0 {
		printer.PrintWarning("No packages found in " + outputDir)
		return nil
	}
	printer.PrintSuccess(fmt.Sprintf("Ran in %d package(s)", len(res.Ran)))
	return nil
}
