package prepare

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/jakzo/things/internal/config"
	"github.com/jakzo/things/internal/git"
	"github.com/jakzo/things/internal/npm"
	"github.com/jakzo/things/internal/printer"
	"github.com/jakzo/things/internal/testutils"
)

type stubs struct {
	published []string
	out       bytes.Buffer
}

func setup(t *testing.T, versions map[string]string) (string, *stubs) {
	t.Helper()
	root := t.TempDir()
	testutils.WriteTree(t, root, map[string]string{
		"package.json":             `{"name": "root", "private": true, "dependencies": {"lodash": "^4.0.0"}}`,
		"src/ui/package.json":      `{"name": "@acme/ui"}`,
		"src/ui/index.js":          "import get from \"lodash/get\";\n",
		"src/ui/__tests__/a.js":    "test();\n",
		"src/app/package.json":     `{}`,
		"src/app/index.js":         "import ui from \"../ui\";\n",
		"src/app/bin/start-app.js": "require(\"../index\");\n",
	})

	s := &stubs{}
	printer.SetOutput(&s.out)
	t.Cleanup(func() { printer.SetOutput(os.Stdout) })

	origGit, origNPM := newGitClient, newNPMClient
	t.Cleanup(func() { newGitClient, newNPMClient = origGit, origNPM })
	newGitClient = func(string) (git.Client, error) { return &git.MockClient{}, nil }
	newNPMClient = func(int) (npm.Registry, npm.Publisher) {
		return &npm.MockRegistry{Versions: versions}, &npm.MockPublisher{PublishFn: func(_ context.Context, dir string) error {
			s.published = append(s.published, filepath.Base(dir))
			return nil
		}}
	}
	return root, s
}

func runCmd(t *testing.T, cfg *config.Config, args ...string) error {
	t.Helper()
	root := &cli.Command{Name: "package-splitter", Commands: []*cli.Command{Run(cfg)}}
	return root.Run(context.Background(), append([]string{"package-splitter", "prepare"}, args...))
}

func TestPrepareCmd_PublishesNewPackages(t *testing.T) {
	root, s := setup(t, map[string]string{"@acme/ui": "1.4.0"})

	err := runCmd(t, config.Default(), "-r", root, "-b", "./src/", "--prefix", "@acme/", "-y")
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	app := gjson.Parse(testutils.ReadFile(t, root, "dist/acme__app/package.json"))
	if got := app.Get("name").String(); got != "@acme/app" {
		t.Errorf("app name = %q", got)
	}
	if got := app.Get("version").String(); got != "0.0.1" {
		t.Errorf("app version = %q, want 0.0.1", got)
	}
	if got := app.Get("dependencies").Map()["@acme/ui"].String(); got != "1.4.0" {
		t.Errorf("app depends on ui@%q", got)
	}
	if got := app.Get("bin.start_app").String(); got != "bin/start-app.js" {
		t.Errorf("bin.start_app = %q", got)
	}
	ui := gjson.Parse(testutils.ReadFile(t, root, "dist/acme__ui/package.json"))
	if got := ui.Get("dependencies.lodash").String(); got != "^4.0.0" {
		t.Errorf("ui depends on lodash@%q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "acme__ui", "__tests__")); err == nil {
		t.Error("default ignore glob did not skip __tests__")
	}

	if strings.Join(s.published, ",") != "acme__app" {
		t.Errorf("published %v, want only the new package", s.published)
	}
	if !strings.Contains(s.out.String(), "Published 1 package(s)") {
		t.Errorf("output = %q", s.out.String())
	}
}

func TestPrepareCmd_NoPublish(t *testing.T) {
	root, s := setup(t, nil)
	if err := runCmd(t, config.Default(), "-r", root, "-b", "./src/", "--no-publish"); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if len(s.published) != 0 {
		t.Errorf("published %v", s.published)
	}
	if !strings.Contains(s.out.String(), "Skipping publish of 2 package(s)") {
		t.Errorf("output = %q", s.out.String())
	}
	testutils.ReadFile(t, root, "dist/app/package.json")
}

func TestPrepareCmd_ConfigValues(t *testing.T) {
	root, _ := setup(t, nil)
	cfg := config.Default()
	cfg.BuildDir = "./src/"
	cfg.OutputDir = "./out/"

	if err := runCmd(t, cfg, "-r", root, "--no-publish"); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	testutils.ReadFile(t, root, "out/ui/package.json")
}

func TestPrepareCmd_InvalidConfiguration(t *testing.T) {
	root, s := setup(t, nil)

	err := runCmd(t, config.Default(), "-r", root, "--policy", "sideways")
	if err == nil || !strings.Contains(err.Error(), "configuration has 2 error(s)") {
		t.Fatalf("error = %v, want two configuration errors", err)
	}
	out := s.out.String()
	for _, want := range []string{"Build directory does not exist", "unknown version policy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not mention %q", out, want)
		}
	}
}

func TestMergeFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Prefix = "from-config-"
	cfg.Concurrency = 2

	var merged *config.Config
	cmd := Run(cfg)
	cmd.Action = func(_ context.Context, cmd *cli.Command) error {
		var err error
		merged, err = mergeFlags(cmd, cfg)
		return err
	}
	root := &cli.Command{Name: "t", Commands: []*cli.Command{cmd}}
	err := root.Run(context.Background(), []string{"t", "prepare", "-r", "/repo", "-o", "/abs/out", "-i", "a", "-i", "b", "--concurrency", "5"})
	if err != nil {
		t.Fatal(err)
	}

	if merged.RootDir != filepath.FromSlash("/repo") || merged.OutputDir != filepath.FromSlash("/abs/out") {
		t.Errorf("dirs = %s %s", merged.RootDir, merged.OutputDir)
	}
	if merged.SourceDir != filepath.Join("/repo", "src") {
		t.Errorf("SourceDir = %s", merged.SourceDir)
	}
	if strings.Join(merged.IgnoreGlobs, ",") != "a,b" || merged.Concurrency != 5 || merged.Prefix != "from-config-" {
		t.Errorf("merged = %+v", merged)
	}
	if cfg.SourceDir != config.DefaultSourceDir {
		t.Error("mergeFlags modified the loaded config")
	}
}
