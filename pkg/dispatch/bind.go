package dispatch

import (
	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/JulianFerry/easymake/pkg/value"
)

// Bind matches the invocation against the declared parameters of target.
//
// Each parameter takes, in this order: a keyword of the same name, a flag of the same name (true)
// or its default. Parameters without any of those end up in Call.Missing. Targets accepting extra
// positional arguments receive rest followed by every flag as "-x"; targets accepting extra
// keywords receive the keywords that no declared parameter consumed.
func Bind(target *targets.Descriptor, inv *Invocation, rest []string) *targets.Call {
	call := &targets.Call{
		Target:  target,
		Bound:   make([]targets.Argument, 0, len(target.Params)),
		Missing: make([]string, 0),
		Args:    make([]value.Value, 0),
		Kwargs:  value.NewMap(0),
	}

	for _, param := range target.Params {
		if v, ok := inv.Keywords.Get(param.Name); ok {
			call.Bound = append(call.Bound, targets.Argument{Param: param, Value: v})
		} else if inv.HasFlag(param.Name) {
			call.Bound = append(call.Bound, targets.Argument{Param: param, Value: value.Bool(true)})
		} else if param.HasDefault {
			call.Bound = append(call.Bound, targets.Argument{Param: param, Value: param.Default, FromDefault: true})
		} else {
			call.Missing = append(call.Missing, param.Name)
		}
	}

	if target.VarArgs {
		for _, token := range rest {
			call.Args = append(call.Args, value.String(token))
		}
		for _, flag := range inv.Flags {
			call.Args = append(call.Args, value.String("-"+flag))
		}
	}

	if target.VarKwargs {
		for _, name := range inv.Keywords.Keys() {
			if _, declared := target.Param(name); declared {
				continue
			}

			v, _ := inv.Keywords.Get(name)
			call.Kwargs.Set(name, v)
		}
	}

	return call
}
