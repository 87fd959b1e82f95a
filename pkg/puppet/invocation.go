package puppet

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Subcommand identifies the agent subcommand an invocation drives.
type Subcommand string

const (
	// SubcommandAgent is the primary run mode (`puppet agent --test`).
	SubcommandAgent Subcommand = "agent"

	// SubcommandApply applies a single manifest file.
	SubcommandApply Subcommand = "apply"
)

// Platform selects the shell idiom used for the success-code remap.
type Platform string

const (
	PlatformPOSIX   Platform = "posix"
	PlatformWindows Platform = "windows"
)

// CurrentPlatform returns the platform of the running process.
func CurrentPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

// Invocation is an immutable description of one agent command execution.
// Positional holds subcommand-specific arguments (the manifest path for
// apply), Flags are rendered as bare `--name` options and Options as
// `--name value` pairs.
type Invocation struct {
	Subcommand Subcommand
	Positional []string
	Flags      []string
	Options    map[string]string
}

// NewInvocation assembles an invocation from an ordered argument list and
// caller-supplied options. The subcommand name itself must already have
// been removed from args by the caller.
//
// For apply the first argument is mandatory and is consumed as the
// manifest path. For agent an implicit "test" flag is always present.
// Remaining arguments become flags, deduplicated in first-seen order.
// Options are merged over a seeded color=false default; entries with an
// empty value are skipped, mirroring the absent-keyword convention of the
// caller side.
func NewInvocation(sub Subcommand, args []string, options map[string]string) (Invocation, error) {
	rest := append([]string(nil), args...)

	var positional []string
	switch sub {
	case SubcommandApply:
		if len(rest) == 0 {
			return Invocation{}, ErrMissingManifest
		}
		positional = []string{rest[0]}
		rest = rest[1:]
	case SubcommandAgent:
		rest = append(rest, "test")
	}

	seen := make(map[string]bool, len(rest))
	flags := make([]string, 0, len(rest))
	for _, flag := range rest {
		if seen[flag] {
			continue
		}
		seen[flag] = true
		flags = append(flags, flag)
	}

	opts := map[string]string{"color": "false"}
	for key, value := range options {
		if value == "" {
			continue
		}
		opts[key] = value
	}

	return Invocation{
		Subcommand: sub,
		Positional: positional,
		Flags:      flags,
		Options:    opts,
	}, nil
}

// Render serializes the invocation into the agent command line. Options
// are rendered in sorted key order so the output is deterministic.
func (inv Invocation) Render(binary string, paths Paths) string {
	parts := []string{
		binary, string(inv.Subcommand),
		"--vardir", paths.VarDir,
		"--confdir", paths.ConfDir,
	}
	parts = append(parts, inv.Positional...)
	for _, flag := range inv.Flags {
		parts = append(parts, "--"+flag)
	}

	keys := make([]string, 0, len(inv.Options))
	for key := range inv.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, "--"+key, inv.Options[key])
	}

	return strings.Join(parts, " ")
}

// WrapSuccessRemap wraps a rendered command line so that the agent's exit
// code 2 ("run succeeded with changes applied") is remapped to 0. All
// other non-zero codes propagate unchanged.
func WrapSuccessRemap(cmdline string, platform Platform) string {
	if platform == PlatformWindows {
		return fmt.Sprintf(
			"cmd /V:ON /c %s ^& if !ERRORLEVEL! EQU 2 (EXIT 0) ELSE (EXIT /B)",
			cmdline,
		)
	}
	return fmt.Sprintf("(%s) || test $? -eq 2", cmdline)
}

// Paths holds the directories reported by the agent's own configuration
// printer, plus the state file locations derived from them.
type Paths struct {
	VarDir  string
	RunDir  string
	ConfDir string
}

// DisabledLockFile marks the agent as administratively disabled.
func (p Paths) DisabledLockFile() string {
	return filepath.Join(p.VarDir, "state", "agent_disabled.lock")
}

// RunLockFile is held while a catalog run is in progress.
func (p Paths) RunLockFile() string {
	return filepath.Join(p.VarDir, "state", "agent_catalog_run.lock")
}

// AgentPidFile records the pid of the agent daemon.
func (p Paths) AgentPidFile() string {
	return filepath.Join(p.RunDir, "agent.pid")
}

// LastRunFile is the summary document written after each run.
func (p Paths) LastRunFile() string {
	return filepath.Join(p.VarDir, "state", "last_run_summary.yaml")
}
