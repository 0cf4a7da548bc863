package starscript

import (
	"context"

	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

type starlarkTarget struct {
	fn     *starlark.Function
	script *scriptCtx
}

// describe builds a descriptor from the signature of fn. Starlark orders the parameters as
// positional, keyword-only, *args, **kwargs.
func describe(name, desc string, fn *starlark.Function, sctx *scriptCtx) *targets.Descriptor {
	declared := fn.NumParams()
	if fn.HasVarargs() {
		declared--
	}
	if fn.HasKwargs() {
		declared--
	}
	firstKwonly := declared - fn.NumKwonlyParams()

	params := make([]targets.Param, declared)
	for idx := 0; idx < declared; idx++ {
		paramName, _ := fn.Param(idx)
		params[idx] = targets.Param{
			Name:        paramName,
			KeywordOnly: idx >= firstKwonly,
		}

		if def := fn.ParamDefault(idx); def != nil {
			params[idx].HasDefault = true
			// None and other values without a counterpart are passed natively
			params[idx].Default, _ = starlarkToValue(def)
		}
	}

	return &targets.Descriptor{
		Name:      name,
		Desc:      desc,
		Params:    params,
		VarArgs:   fn.HasVarargs(),
		VarKwargs: fn.HasKwargs(),
		Invoker:   &starlarkTarget{fn: fn, script: sctx},
	}
}

func (t *starlarkTarget) arguments(call *targets.Call) (starlark.Tuple, []starlark.Tuple, error) {
	args := make(starlark.Tuple, 0, len(call.Bound)+len(call.Args))
	kwargs := make([]starlark.Tuple, 0)

	// An incomplete call passes everything by keyword so Starlark reports the missing parameters
	positional := call.Complete()

	for idx, arg := range call.Bound {
		var v starlark.Value
		if arg.FromDefault {
			v = t.fn.ParamDefault(t.paramIndex(arg.Param.Name, idx))
		} else {
			var err error
			v, err = valueToStarlark(arg.Value)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "invalid value for %s", arg.Param.Name)
			}
		}

		if positional && !arg.Param.KeywordOnly {
			args = append(args, v)
		} else {
			kwargs = append(kwargs, starlark.Tuple{starlark.String(arg.Param.Name), v})
		}
	}

	if !positional {
		return args, kwargs, nil
	}

	for _, extra := range call.Args {
		v, err := valueToStarlark(extra)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}

	if call.Kwargs != nil {
		for _, name := range call.Kwargs.Keys() {
			raw, _ := call.Kwargs.Get(name)
			v, err := valueToStarlark(raw)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "invalid value for %s", name)
			}
			kwargs = append(kwargs, starlark.Tuple{starlark.String(name), v})
		}
	}

	return args, kwargs, nil
}

func (t *starlarkTarget) paramIndex(name string, fallback int) int {
	for idx := 0; idx < t.fn.NumParams(); idx++ {
		if paramName, _ := t.fn.Param(idx); paramName == name {
			return idx
		}
	}
	return fallback
}

// Invoke calls the Starlark function on a fresh thread bound to ctx
func (t *starlarkTarget) Invoke(ctx context.Context, call *targets.Call) error {
	args, kwargs, err := t.arguments(call)
	if err != nil {
		return err
	}

	thread := newThread(ctx, call.Target.Name, t.script)
	release := cancelOnDone(ctx, thread)
	defer release()

	_, err = starlark.Call(thread, t.fn, args, kwargs)
	if err != nil {
		return wrapEvalError(err)
	}
	return nil
}
