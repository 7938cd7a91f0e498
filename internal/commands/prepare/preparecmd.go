package prepare

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jakzo/things/internal/config"
	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/git"
	"github.com/jakzo/things/internal/monorepo"
	"github.com/jakzo/things/internal/npm"
	"github.com/jakzo/things/internal/printer"
	"github.com/jakzo/things/internal/publish"
	"github.com/jakzo/things/internal/tui"
	"github.com/jakzo/things/internal/versioning"
)

// Collaborator factories, replaced in tests.
var (
	newGitClient = func(dir string) (git.Client, error) {
		return git.Open(dir)
	}
	newNPMClient = func(publishLimit int) (npm.Registry, npm.Publisher) {
		c := npm.NewClient(0, publishLimit)
		return c, c
	}
)

// Run returns the "prepare" command.
func Run(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "prepare",
		Usage:     "Prepare packages for publishing and publish the changed ones",
		UsageText: "package-splitter prepare [--flags]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source-dir",
				Aliases:     []string{"s"},
				Usage:       "Path to the source directory (where the package.json files are)",
				DefaultText: config.DefaultSourceDir,
			},
			&cli.StringFlag{
				Name:        "build-dir",
				Aliases:     []string{"b"},
				Usage:       "Path to the build output, mirroring the source directory (can be the source directory itself)",
				DefaultText: config.DefaultBuildDir,
			},
			&cli.StringFlag{
				Name:        "output-dir",
				Aliases:     []string{"o"},
				Usage:       "Path to write the packages ready for publishing to",
				DefaultText: config.DefaultOutputDir,
			},
			&cli.StringFlag{
				Name:        "root-dir",
				Aliases:     []string{"r"},
				Usage:       "Root directory of the project",
				DefaultText: "current directory",
			},
			&cli.StringSliceFlag{
				Name:        "ignore-glob",
				Aliases:     []string{"i"},
				Usage:       "Gitignore-style pattern of files to leave out (repeatable)",
				DefaultText: strings.Join(config.DefaultIgnoreGlobs, ", "),
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Prefix for generated package names",
			},
			&cli.StringFlag{
				Name:        "policy",
				Usage:       "Which packages a change bumps: ancestors or dependents",
				DefaultText: string(versioning.PolicyAncestors),
			},
			&cli.StringFlag{
				Name:        "default-version",
				Usage:       "Version of packages that were never published",
				DefaultText: versioning.DefaultVersion,
			},
			&cli.IntFlag{
				Name:        "concurrency",
				Usage:       "Maximum concurrent filesystem operations",
				DefaultText: fmt.Sprint(core.DefaultFSConcurrency),
			},
			&cli.IntFlag{
				Name:        "publish-concurrency",
				Usage:       "Maximum concurrent npm publishes",
				DefaultText: fmt.Sprint(npm.DefaultPublishConcurrency),
			},
			&cli.BoolFlag{
				Name:  "no-publish",
				Usage: "Only prepare the output directory",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Publish without asking for confirmation",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPrepareCmd(ctx, cmd, cfg)
		},
	}
}

// mergeFlags returns cfg overridden by the flags that were set, with
// every directory made absolute.
func mergeFlags(cmd *cli.Command, cfg *config.Config) (*config.Config, error) {
	merged := *cfg
	for name, dst := range map[string]*string{
		"source-dir":      &merged.SourceDir,
		"build-dir":       &merged.BuildDir,
		"output-dir":      &merged.OutputDir,
		"root-dir":        &merged.RootDir,
		"prefix":          &merged.Prefix,
		"policy":          &merged.Policy,
		"default-version": &merged.DefaultVersion,
	} {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	if cmd.IsSet("ignore-glob") {
		merged.IgnoreGlobs = cmd.StringSlice("ignore-glob")
	}
	if cmd.IsSet("concurrency") {
		merged.Concurrency = cmd.Int("concurrency")
	}
	if cmd.IsSet("publish-concurrency") {
		merged.PublishConcurrency = cmd.Int("publish-concurrency")
	}

	if merged.RootDir == "" {
		merged.RootDir = "."
	}
	root, err := filepath.Abs(merged.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	merged.RootDir = root
	for _, dir := range []*string{&merged.SourceDir, &merged.BuildDir, &merged.OutputDir} {
		if !filepath.IsAbs(*dir) {
			*dir = filepath.Join(root, *dir)
		}
	}
	return &merged, nil
}

func runPrepareCmd(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	merged, err := mergeFlags(cmd, cfg)
	if err != nil {
		return err
	}

	fs := core.NewOSFileSystem()
	results, err := config.NewValidator(fs, merged).Validate(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.Warning:
			printer.PrintWarning(fmt.Sprintf("[%s] %s", r.Category, r.Message))
		case !r.Passed:
			printer.PrintError(fmt.Sprintf("[%s] %s", r.Category, r.Message))
		default:
			console.Debug(r.Message, "check", r.Category)
		}
	}
	if n := config.ErrorCount(results); n > 0 {
		return fmt.Errorf("configuration has %d error(s)", n)
	}

	policy, err := versioning.ParsePolicy(merged.Policy)
	if err != nil {
		return err
	}
	gitClient, err := newGitClient(merged.RootDir)
	if err != nil {
		return err
	}
	registry, publisher := newNPMClient(merged.PublishConcurrency)

	orchestrator := publish.NewOrchestrator(fs, publish.Options{
		Layout: monorepo.Layout{
			RootDir:    merged.RootDir,
			SrcDir:     merged.SourceDir,
			BuildDir:   merged.BuildDir,
			PublishDir: merged.OutputDir,
			NamePrefix: merged.Prefix,
		},
		IgnoreGlobs:        merged.IgnoreGlobs,
		IgnoreGitignored:   merged.IgnoreGitignored,
		ImportResolver:     merged.ImportResolver(merged.BuildDir),
		Policy:             policy,
		DefaultVersion:     merged.DefaultVersion,
		FSConcurrency:      merged.Concurrency,
		PublishConcurrency: merged.PublishConcurrency,
	}, publish.Collaborators{Git: gitClient, Registry: registry, Publisher: publisher})

	var prepared *publish.Prepared
	err = tui.Spin(ctx, "Preparing packages...", func(ctx context.Context) error {
		var err error
		prepared, err = orchestrator.Prepare(ctx)
		return err
	})
	if err != nil {
		return err
	}
	printReport(prepared)

	toPublish := prepared.ToPublish()
	if len(toPublish) == 0 {
		printer.PrintSuccess("All packages are up to date")
		return nil
	}
	if cmd.Bool("no-publish") {
		printer.PrintInfo(fmt.Sprintf("Skipping publish of %d package(s)", len(toPublish)))
		return nil
	}
	if !cmd.Bool("yes") && tui.IsInteractive() {
		ok, err := tui.ConfirmFn(fmt.Sprintf("Publish %d package(s)?", len(toPublish)), publishList(toPublish))
		if errors.Is(err, tui.ErrAborted) || err == nil && !ok {
			printer.PrintInfo("Publishing cancelled")
			return nil
		}
		if err != nil {
			return err
		}
	}

	if err := orchestrator.Publish(ctx, prepared); err != nil {
		return err
	}
	printer.PrintSuccess(fmt.Sprintf("Published %d package(s)", len(toPublish)))
	return nil
}

func printReport(prepared *publish.Prepared) {
	printer.PrintBold(fmt.Sprintf("Prepared %d package(s) in %s", len(prepared.Packages), prepared.PublishDir))
	for _, pkg := range prepared.Packages {
		line := fmt.Sprintf("  %s@%s", pkg.Name, pkg.Version)
		if pkg.Publish {
			printer.PrintInfo(line + " (publish)")
		} else {
			printer.PrintFaint(line)
		}
	}
	for _, w := range prepared.Warnings {
		printer.PrintWarning("warning: " + w.Error())
	}
}

func publishList(pkgs []publish.PreparedPackage) string {
	names := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		names[i] = pkg.Name + "@" + cmp.Or(pkg.Version, "?")
	}
	return strings.Join(names, "\n")
}
