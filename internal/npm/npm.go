// Package npm queries the registry for published versions and publishes
// prepared package directories by shelling out to the npm CLI.
package npm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultLookupConcurrency bounds concurrent `npm info` processes.
	DefaultLookupConcurrency = 16

	// DefaultPublishConcurrency bounds concurrent `npm publish` processes.
	DefaultPublishConcurrency = 4

	registryEnv  = "npm_config_registry"
	yarnRegistry = "https://registry.yarnpkg.com"
)

// execCommand is overridden in tests.
var execCommand = exec.CommandContext

// Registry looks up the latest published version of a package.
type Registry interface {
	// PublishedVersion returns ok=false when the package was never
	// published.
	PublishedVersion(ctx context.Context, name string) (version string, ok bool, err error)
}

// Publisher publishes a package directory.
type Publisher interface {
	Publish(ctx context.Context, dir string) error
}

// Client implements Registry and Publisher with the npm CLI.
type Client struct {
	lookups   *semaphore.Weighted
	publishes *semaphore.Weighted

	// Stdout and Stderr receive the output of `npm publish`.
	Stdout, Stderr io.Writer
}

// Verify Client implements Registry and Publisher.
var (
	_ Registry  = (*Client)(nil)
	_ Publisher = (*Client)(nil)
)

// NewClient returns a Client running at most lookupLimit `npm info` and
// publishLimit `npm publish` processes at once. Non-positive limits use
// the defaults.
func NewClient(lookupLimit, publishLimit int) *Client {
	if lookupLimit <= 0 {
		lookupLimit = DefaultLookupConcurrency
	}
	if publishLimit <= 0 {
		publishLimit = DefaultPublishConcurrency
	}
	return &Client{
		lookups:   semaphore.NewWeighted(int64(lookupLimit)),
		publishes: semaphore.NewWeighted(int64(publishLimit)),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// PublishedVersion runs `npm info <name> --json`. An E404 response means
// the package does not exist yet.
func (c *Client) PublishedVersion(ctx context.Context, name string) (string, bool, error) {
	if err := c.lookups.Acquire(ctx, 1); err != nil {
		return "", false, err
	}
	defer c.lookups.Release(1)

	cmd := execCommand(ctx, "npm", "info", name, "--json")
	cmd.Env = environ(cmd.Env)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	out := stdout.Bytes()
	if gjson.ValidBytes(out) {
		if gjson.GetBytes(out, "error.code").String() == "E404" {
			return "", false, nil
		}
	}
	if runErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", false, fmt.Errorf("npm info %s: %s: %w", name, msg, runErr)
		}
		return "", false, fmt.Errorf("npm info %s failed: %w", name, runErr)
	}

	version := gjson.GetBytes(out, "version")
	if version.Type != gjson.String || version.String() == "" {
		return "", false, fmt.Errorf("npm info %s returned no version", name)
	}
	return version.String(), true, nil
}

// Publish runs `npm publish` inside dir.
func (c *Client) Publish(ctx context.Context, dir string) error {
	if err := c.publishes.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.publishes.Release(1)

	cmd := execCommand(ctx, "npm", "publish")
	cmd.Dir = dir
	cmd.Env = environ(cmd.Env)
	var stderr bytes.Buffer
	cmd.Stdout = c.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("npm publish in %s: %s: %w", dir, msg, err)
		}
		return fmt.Errorf("npm publish in %s failed: %w", dir, err)
	}
	if c.Stderr != nil && stderr.Len() > 0 {
		_, _ = c.Stderr.Write(stderr.Bytes())
	}
	return nil
}

// environ drops the registry override Yarn sets when running scripts, so
// a publish triggered from Yarn still talks to the npm registry. A nil env
// means the current process environment.
func environ(env []string) []string {
	if env == nil {
		env = os.Environ()
	}
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, registryEnv+"=") && strings.TrimSuffix(strings.TrimPrefix(kv, registryEnv+"="), "/") == yarnRegistry {
			continue
		}
		out = append(out, kv)
	}
	return out
}
