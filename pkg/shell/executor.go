// Package shell runs the shell commands of build targets.
//
// Commands are split on ";" and every part is executed as its own child process through
// mvdan.cc/sh. Words are interpolated against a variable store before they're executed.
// The first failing command aborts the whole call.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/JulianFerry/easymake/pkg/vars"
	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Mode selects what happens to the output of a command
type Mode int

const (
	// Stream passes stdout through and merges stderr into it
	Stream Mode = iota
	// Capture collects stdout and stderr without showing them
	Capture
)

// CommandError is returned when a command exits with a non-zero status
type CommandError struct {
	Args     []string
	Dir      string
	ExitCode int
	// Stderr holds the captured error output (empty in stream mode since it was already shown)
	Stderr string
	// Output holds the captured output of the commands that ran before the failing one
	Output string
	Err    error
}

var _ error = (*CommandError)(nil)

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %s failed with exit code %d", formatArgs(e.Args), e.ExitCode)
	if e.Stderr != "" {
		msg += ":\n\n" + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func formatArgs(args []string) string {
	quoted := make([]string, len(args))
	for idx, arg := range args {
		quoted[idx] = fmt.Sprintf("%q", arg)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Executor runs commands on behalf of build targets. It is not safe for concurrent use.
type Executor struct {
	store  *vars.Store
	stdout io.Writer
	dryRun bool
}

// Option customizes an Executor
type Option func(*Executor)

// WithOutput redirects streamed output (default: os.Stdout)
func WithOutput(out io.Writer) Option {
	return func(e *Executor) {
		e.stdout = out
	}
}

// WithDryRun only logs the commands instead of executing them
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// NewExecutor creates an executor that interpolates commands against store
func NewExecutor(store *vars.Store, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		stdout: os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the variable store used for interpolation
func (e *Executor) Store() *vars.Store {
	return e.store
}

// Run executes command and streams its output. An empty dir means the current working directory.
func (e *Executor) Run(ctx context.Context, command, dir string) error {
	_, err := e.Execute(ctx, command, dir, Stream)
	return err
}

// Capture executes command and returns its output with one trailing newline removed per
// sub-command. The outputs of multiple sub-commands are joined with newlines; sub-commands that
// print nothing are skipped.
func (e *Executor) Capture(ctx context.Context, command, dir string) (string, error) {
	return e.Execute(ctx, command, dir, Capture)
}

// Execute runs each ";" separated part of command in order and stops at the first failure.
func (e *Executor) Execute(ctx context.Context, command, dir string, mode Mode) (string, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", eris.Wrap(err, "failed to retrieve the current working directory")
		}
	}
	dir = e.store.Interpolate(dir)

	parser := syntax.NewParser()
	outputs := make([]string, 0)

	for _, part := range SplitCommands(command) {
		args, err := splitWords(parser, part)
		if err != nil {
			return strings.Join(outputs, "\n"), err
		}

		if len(args) == 0 {
			continue
		}

		for idx, arg := range args {
			args[idx] = value.Canonical(e.store.Interpolate(arg))
		}

		if e.dryRun {
			logctx.Log(ctx).Info().
				Bool("command", true).
				Str("dir", dir).
				Msg(strings.Join(args, " "))
			continue
		}

		logctx.Log(ctx).Debug().
			Bool("command", true).
			Str("dir", dir).
			Msg(strings.Join(args, " "))

		output, err := e.runArgs(ctx, args, dir, mode)
		if err != nil {
			var cmdErr *CommandError
			if errors.As(err, &cmdErr) {
				cmdErr.Output = strings.Join(outputs, "\n")
			}
			return strings.Join(outputs, "\n"), err
		}

		// commands without any output contribute nothing
		if mode == Capture && output != "" {
			outputs = append(outputs, strings.TrimSuffix(output, "\n"))
		}
	}

	return strings.Join(outputs, "\n"), nil
}

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func (e *Executor) runArgs(ctx context.Context, args []string, dir string, mode Mode) (string, error) {
	// single quoted words are passed through as-is; no globbing or further expansion
	call := &syntax.CallExpr{Args: make([]*syntax.Word, len(args))}
	for idx, arg := range args {
		call.Args[idx] = &syntax.Word{
			Parts: []syntax.WordPart{&syntax.SglQuoted{Value: arg}},
		}
	}

	var stdout, stderr io.Writer
	var outBuffer, errBuffer bytes.Buffer
	if mode == Capture {
		stdout = &outBuffer
		stderr = &errBuffer
	} else {
		stdout = e.stdout
		stderr = e.stdout
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.ExecHandler(defaultExecHandler),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return "", eris.Wrap(err, "failed to initialize runner")
	}

	err = runner.Run(ctx, call)
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return "", &CommandError{
				Args:     args,
				Dir:      dir,
				ExitCode: int(status),
				Stderr:   errBuffer.String(),
				Err:      err,
			}
		}

		return "", eris.Wrapf(err, "failed to run %s", formatArgs(args))
	}

	return outBuffer.String(), nil
}
