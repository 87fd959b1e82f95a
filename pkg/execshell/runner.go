package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Result holds the captured output of one command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Command describes a single execution request. When Shell is set the
// command string is interpreted by `sh -c` (needed for wrappers that rely
// on shell exit-code handling); otherwise Argv is executed directly.
type Command struct {
	Argv  []string
	Shell string
	Dir   string
	Env   map[string]string
}

// Runner executes commands on behalf of callers. A non-zero exit code is
// reported through Result.ExitCode, not as an error; the error return is
// reserved for failures to run the command at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LocalRunner runs commands on the local host.
type LocalRunner struct {
	logger  zerolog.Logger
	timeout time.Duration
}

// NewLocalRunner creates a runner. A zero timeout means none is imposed.
func NewLocalRunner(logger zerolog.Logger, timeout time.Duration) *LocalRunner {
	return &LocalRunner{
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes the command and captures its output.
func (r *LocalRunner) Run(ctx context.Context, req Command) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	switch {
	case req.Shell != "":
		cmd = exec.CommandContext(ctx, "sh", "-c", req.Shell)
	case len(req.Argv) > 0:
		cmd = exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	default:
		return Result{}, errors.New("empty command")
	}

	if req.Dir != "" {
		cmd.Dir = req.Dir
	}
	if len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for key, value := range req.Env {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return Result{}, err
		}
		exitCode = exitErr.ExitCode()
	}

	r.logger.Debug().
		Str("shell", req.Shell).
		Strs("argv", req.Argv).
		Int("exit_code", exitCode).
		Dur("duration", duration).
		Msg("Command executed")

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}
