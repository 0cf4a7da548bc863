package dispatch

import (
	"context"
	"errors"
	"os"

	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/shell"
	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/rotisserie/eris"
)

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		target string
	}
)

// CurrentTarget returns the name of the target that is running in ctx
func CurrentTarget(ctx context.Context) string {
	rctx, ok := ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
	if !ok {
		return ""
	}
	return rctx.target
}

// Dispatcher runs the targets named on the command line
type Dispatcher struct {
	registry *targets.Registry
}

// New creates a dispatcher for the targets in registry
func New(registry *targets.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Plan parses tokens and binds the arguments of every selected target without running anything
func (d *Dispatcher) Plan(tokens []string) ([]*targets.Call, error) {
	inv := Parse(tokens)
	sel, err := Select(d.registry, inv.Positional)
	if err != nil {
		return nil, err
	}

	calls := make([]*targets.Call, len(sel.Targets))
	for idx, target := range sel.Targets {
		calls[idx] = Bind(target, inv, sel.Rest)
	}
	return calls, nil
}

// Run executes the selected targets in order and stops at the first failure
func (d *Dispatcher) Run(ctx context.Context, tokens []string) error {
	calls, err := d.Plan(tokens)
	if err != nil {
		return err
	}

	for _, call := range calls {
		if err = ctx.Err(); err != nil {
			return err
		}

		logctx.Log(ctx).Info().
			Str("target", call.Target.Name).
			Msg("running")

		tctx := context.WithValue(ctx, runtimeCtxKey{}, &runtimeCtx{target: call.Target.Name})
		err = call.Target.Invoker.Invoke(tctx, call)
		if err != nil {
			return eris.Wrapf(err, "target %s failed", call.Target.Name)
		}
	}

	return nil
}

// ExitCode maps an error returned by Run to a process exit status. Failed commands pass their
// own status through.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var cmdErr *shell.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode != 0 {
		return cmdErr.ExitCode
	}
	return 1
}

var exit = os.Exit

// RunAll runs the targets named by tokens and terminates the process. The exit status is zero if
// every target succeeded and ExitCode(err) otherwise.
func RunAll(ctx context.Context, registry *targets.Registry, tokens []string) {
	err := New(registry).Run(ctx, tokens)
	if err == nil {
		exit(0)
		return
	}

	evt := logctx.Log(ctx).Error()
	var cmdErr *shell.CommandError
	if errors.As(err, &cmdErr) {
		evt = evt.Strs("args", cmdErr.Args).
			Str("dir", cmdErr.Dir).
			Int("exit_code", cmdErr.ExitCode)
		if cmdErr.Stderr != "" {
			evt = evt.Str("stderr", cmdErr.Stderr)
		}
	}
	evt.Err(err).Msg("build failed")

	exit(ExitCode(err))
}
