package pkgmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes a command in a working directory.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) error
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string // last lines of stderr, for the error message
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs commands with os/exec, streaming output to Stdout/Stderr.
type ExecRunner struct {
	// Stdout and Stderr can be set for testing; defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// Run executes name with args in dir. env entries are added on top of the
// current process environment.
func (r *ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	bin, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found on PATH: %w", name, err)
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	command := strings.TrimSpace(name + " " + strings.Join(args, " "))
	logger.Debug("running command", zap.String("command", command), zap.String("dir", dir))

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for _, kv := range env {
		key, value, _ := strings.Cut(kv, "=")
		cmd.Env = setEnv(cmd.Env, key, value)
	}

	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var stderrBuf bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, &stderrBuf)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{
				Command:  command,
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail(stderrBuf.String(), 3),
			}
		}
		return fmt.Errorf("running %s: %w", command, err)
	}
	return nil
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// tail returns the last n non-empty lines of s joined with "; ".
func tail(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
