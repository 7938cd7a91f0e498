package tui

import (
	"os"

	"golang.org/x/term"
)

// ciEnvVars are set by CI providers, where nobody can answer a prompt.
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"JENKINS_HOME",
	"BUILDKITE",
	"BITBUCKET_BUILD_NUMBER",
	"DRONE",
	"TF_BUILD",
	"CODEBUILD_BUILD_ID",
}

// IsInteractive reports whether prompts and spinners can be shown: both
// stdin and stdout are terminals and no CI provider is detected.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout) && !inCI()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd is a small value
}

func inCI() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
