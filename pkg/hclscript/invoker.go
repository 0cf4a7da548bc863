package hclscript

import (
	"context"
	"os"

	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/rotisserie/eris"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

type hclTarget struct {
	block  *targetBlock
	script *scriptCtx
}

// run evaluates the commands of the target with the bound arguments and runs them in order
func (t *hclTarget) run(ctx context.Context, call *targets.Call) error {
	evalCtx := t.script.evalContext(ctx, call)

	result, diags := t.block.Commands.Value(evalCtx)
	if diags.HasErrors() {
		return eris.Wrapf(diags, "failed to evaluate the commands of %s", t.block.Name)
	}

	commands, err := commandList(result)
	if err != nil {
		return eris.Wrapf(err, "invalid commands for %s", t.block.Name)
	}

	dir := ""
	if isExprDefined(t.block.Dir) {
		result, diags = t.block.Dir.Value(evalCtx)
		if diags.HasErrors() {
			return eris.Wrapf(diags, "failed to evaluate the dir of %s", t.block.Name)
		}
		if result.IsNull() || result.Type() != cty.String {
			return eris.Errorf("dir of %s must be a string", t.block.Name)
		}
		dir = t.script.normalizePath(result.AsString())
	}

	executor := t.script.executor
	for _, command := range commands {
		err = executor.Run(ctx, command, dir)
		if err != nil {
			return err
		}
	}
	return nil
}

// commandList accepts a single string or a sequence of strings
func commandList(result cty.Value) ([]string, error) {
	if result.IsNull() {
		return nil, eris.New("commands must not be null")
	}

	if result.Type() == cty.String {
		return []string{result.AsString()}, nil
	}

	ty := result.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, eris.Errorf("expected a list of strings, got %s", ty.FriendlyName())
	}

	commands := make([]string, 0)
	for it := result.ElementIterator(); it.Next(); {
		_, item := it.Element()
		if item.IsNull() || item.Type() != cty.String {
			return nil, eris.Errorf("expected a list of strings, got an element of type %s", item.Type().FriendlyName())
		}
		commands = append(commands, item.AsString())
	}
	return commands, nil
}

func functions(ctx context.Context, s *scriptCtx) map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"replace":   stdlib.ReplaceFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"concat":    stdlib.ConcatFunc,
		"length":    stdlib.LengthFunc,
		"env": function.New(&function.Spec{
			Params: []function.Parameter{
				{Name: "name", Type: cty.String},
				{Name: "default", Type: cty.String},
			},
			Type: function.StaticReturnType(cty.String),
			Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
				if env, ok := os.LookupEnv(args[0].AsString()); ok {
					return cty.StringVal(env), nil
				}
				return args[1], nil
			},
		}),
		"capture": function.New(&function.Spec{
			Params: []function.Parameter{
				{Name: "command", Type: cty.String},
			},
			Type: function.StaticReturnType(cty.String),
			Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
				output, err := s.executor.Capture(ctx, args[0].AsString(), "")
				if err != nil {
					return cty.NilVal, err
				}
				return cty.StringVal(output), nil
			},
		}),
	}
}
