package puppet

import (
	"context"
	"fmt"
	"strings"

	"github.com/stigmer/overseer/pkg/execshell"
)

const factSeparator = " => "

// Facts runs the facts-collection binary and parses its line-oriented
// `fact => value` output into a map. Blank lines and lines without the
// separator are discarded.
func (a *Agent) Facts(ctx context.Context, puppetFilter bool) (map[string]string, error) {
	argv := []string{a.facter}
	if puppetFilter {
		argv = append(argv, "--puppet")
	}

	res, err := a.runner.Run(ctx, execshell.Command{Argv: argv})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessExecution, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s", ErrProcessExecution, strings.TrimSpace(res.Stderr))
	}

	facts := make(map[string]string)
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, factSeparator)
		if !ok {
			continue
		}
		facts[name] = strings.TrimSpace(value)
	}
	return facts, nil
}

// Fact runs the facts binary for a single named fact and returns the
// trimmed output, empty when the fact is unknown.
func (a *Agent) Fact(ctx context.Context, name string, puppetFilter bool) (string, error) {
	argv := []string{a.facter}
	if puppetFilter {
		argv = append(argv, "--puppet")
	}
	argv = append(argv, name)

	res, err := a.runner.Run(ctx, execshell.Command{Argv: argv})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProcessExecution, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s", ErrProcessExecution, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}
