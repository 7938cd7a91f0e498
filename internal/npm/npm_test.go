package npm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"testing"
)

type fakeResult struct {
	stdout string
	stderr string
	code   int
}

var (
	fakeResults  = map[string]fakeResult{}
	fakeCommands []string
)

func fakeExecCommand(ctx context.Context, command string, args ...string) *exec.Cmd {
	cmdStr := command + " " + strings.Join(args, " ")
	fakeCommands = append(fakeCommands, cmdStr)
	res := fakeResults[cmdStr]
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", cmdStr) //nolint:gosec // G204: standard test re-exec pattern
	cmd.Env = append(os.Environ(),
		"GO_TEST_HELPER_PROCESS=1",
		"MOCK_STDOUT="+res.stdout,
		"MOCK_STDERR="+res.stderr,
		"MOCK_CODE="+strconv.Itoa(res.code),
	)
	return cmd
}

// Simulated npm process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_TEST_HELPER_PROCESS") != "1" {
		return
	}
	out := os.Getenv("MOCK_STDOUT")
	if out == "PWD" {
		wd, _ := os.Getwd()
		out = wd
	}
	_, _ = os.Stdout.WriteString(out)
	_, _ = os.Stderr.WriteString(os.Getenv("MOCK_STDERR"))
	code, _ := strconv.Atoi(os.Getenv("MOCK_CODE"))
	os.Exit(code)
}

func stubExecCommand(t *testing.T, results map[string]fakeResult) {
	t.Helper()
	orig := execCommand
	execCommand = fakeExecCommand
	fakeResults = results
	fakeCommands = nil
	t.Cleanup(func() { execCommand = orig })
}

func TestClient_PublishedVersion(t *testing.T) {
	tests := []struct {
		name    string
		result  fakeResult
		want    string
		wantOK  bool
		wantErr string
	}{
		{
			name:   "published",
			result: fakeResult{stdout: `{"name":"pkg","version":"1.4.2","dist-tags":{"latest":"1.4.2"}}`},
			want:   "1.4.2", wantOK: true,
		},
		{
			name:   "not found",
			result: fakeResult{stdout: `{"error":{"code":"E404","summary":"Not Found"}}`, code: 1},
		},
		{
			name:    "registry failure",
			result:  fakeResult{stderr: "npm ERR! network timeout", code: 1},
			wantErr: "network timeout",
		},
		{
			name:    "no version in response",
			result:  fakeResult{stdout: `{"name":"pkg"}`},
			wantErr: "returned no version",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubExecCommand(t, map[string]fakeResult{"npm info pkg --json": tt.result})

			got, ok, err := NewClient(0, 0).PublishedVersion(context.Background(), "pkg")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PublishedVersion() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClient_Publish(t *testing.T) {
	dir := t.TempDir()
	stubExecCommand(t, map[string]fakeResult{"npm publish": {stdout: "PWD"}})

	var stdout bytes.Buffer
	c := NewClient(1, 1)
	c.Stdout = &stdout
	if err := c.Publish(context.Background(), dir); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !slices.Equal(fakeCommands, []string{"npm publish"}) {
		t.Errorf("commands = %v", fakeCommands)
	}
	if got := strings.TrimSpace(stdout.String()); got != dir {
		t.Errorf("npm publish ran in %q, want %q", got, dir)
	}
}

func TestClient_PublishFailure(t *testing.T) {
	stubExecCommand(t, map[string]fakeResult{"npm publish": {stderr: "E403 forbidden", code: 1}})

	c := NewClient(1, 1)
	c.Stdout = &bytes.Buffer{}
	err := c.Publish(context.Background(), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "E403 forbidden") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestEnviron(t *testing.T) {
	tests := []struct {
		registry string
		kept     bool
	}{
		{"https://registry.yarnpkg.com", false},
		{"https://registry.yarnpkg.com/", false},
		{"https://npm.example.com", true},
	}
	for _, tt := range tests {
		kv := registryEnv + "=" + tt.registry
		env := environ([]string{"PATH=/bin", kv})
		if got := slices.Contains(env, kv); got != tt.kept {
			t.Errorf("registry %s kept = %v, want %v", tt.registry, got, tt.kept)
		}
		if !slices.Contains(env, "PATH=/bin") {
			t.Error("unrelated variables must be kept")
		}
	}
}

func TestMockRegistry(t *testing.T) {
	m := &MockRegistry{Versions: map[string]string{"a": "1.0.0"}}
	if v, ok, _ := m.PublishedVersion(context.Background(), "a"); !ok || v != "1.0.0" {
		t.Errorf("got %q %v", v, ok)
	}
	m.Err = fmt.Errorf("down")
	if _, _, err := m.PublishedVersion(context.Background(), "a"); err == nil {
		t.Error("expected error")
	}
}
