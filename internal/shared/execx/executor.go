// Package execx runs external build-tool commands.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/shared/observability"
	"bazelcp/internal/shared/util"
)

type Command struct {
	Program string
	Args    []string
	Dir     string
	Env     []string
}

// Verb is the first non-flag argument, used for metrics ("build", "query").
func (c Command) Verb() string {
	for _, a := range c.Args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return "unknown"
}

func (c Command) String() string {
	return strings.TrimSpace(c.Program + " " + strings.Join(c.Args, " "))
}

type Output struct {
	Stdout []byte
	Stderr []byte
}

// Executor runs a command to completion. Implementations must honor ctx.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExitError is a non-zero exit. The captured output is kept because
// bazel with -k still produces usable artifacts for the targets that built.
type ExitError struct {
	Command  Command
	ExitCode int
	Output   Output
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command.Verb(), e.ExitCode)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct {
	Timeout time.Duration
	Limiter *util.Limiter
}

func NewOSExecutor(timeout time.Duration, limiter *util.Limiter) *OSExecutor {
	return &OSExecutor{Timeout: timeout, Limiter: limiter}
}

func (e *OSExecutor) Run(ctx context.Context, cmd Command) (Output, error) {
	verb := cmd.Verb()
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx, 1); err != nil {
			return Output{}, domainerrors.Wrap(err, domainerrors.CodeCanceled, "waiting for command slot")
		}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = 2 * time.Second

	start := time.Now()
	slog.Debug("running command", "command", cmd.String(), "dir", cmd.Dir)
	err := c.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		observability.BazelInvocationsTotal.WithLabelValues(verb, "ok").Inc()
		slog.Debug("command finished", "verb", verb, "duration", time.Since(start))
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		observability.BazelInvocationsTotal.WithLabelValues(verb, "timeout").Inc()
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, domainerrors.AddContext(
				domainerrors.Wrap(ctxErr, domainerrors.CodeTransportFailure, verb+" timed out"),
				domainerrors.CtxCommand, cmd.String(),
			)
		}
		return out, domainerrors.Wrap(ctxErr, domainerrors.CodeCanceled, verb+" canceled")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		observability.BazelInvocationsTotal.WithLabelValues(verb, "failed").Inc()
		return out, domainerrors.AddContext(
			domainerrors.Wrap(&ExitError{Command: cmd, ExitCode: exitErr.ExitCode(), Output: out},
				domainerrors.CodeTransportFailure, verb+" failed"),
			domainerrors.CtxCommand, cmd.String(),
		)
	}

	observability.BazelInvocationsTotal.WithLabelValues(verb, "error").Inc()
	return out, domainerrors.AddContext(
		domainerrors.Wrap(err, domainerrors.CodeTransportFailure, "could not start "+cmd.Program),
		domainerrors.CtxCommand, cmd.String(),
	)
}

// AsExitError extracts the non-zero exit, if that is what err is.
func AsExitError(err error) (*ExitError, bool) {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// Lines splits output into trimmed, non-empty lines.
func Lines(b []byte) []string {
	raw := strings.Split(string(b), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
