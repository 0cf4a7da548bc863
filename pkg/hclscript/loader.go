// Package hclscript loads build targets from declarative HCL files.
//
// A file holds an optional vars block whose attributes are copied into the variable store, and
// any number of target blocks:
//
//	vars {
//	  out = "bin"
//	}
//
//	target "build" {
//	  description = "Builds the app"
//	  param "name" { default = "app" }
//	  commands = ["go build -o $out/${name} ./..."]
//	}
//
// Template expressions like ${name} are evaluated by HCL against the bound parameters and the
// store. Plain $references are left to the command executor.
package hclscript

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/shell"
	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rotisserie/eris"
	"github.com/zclconf/go-cty/cty"
)

type fileRoot struct {
	Vars    []*varsBlock   `hcl:"vars,block"`
	Targets []*targetBlock `hcl:"target,block"`
}

type varsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type targetBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Params      []*paramBlock  `hcl:"param,block"`
	VarArgs     bool           `hcl:"varargs,optional"`
	VarKwargs   bool           `hcl:"kwargs,optional"`
	Dir         hcl.Expression `hcl:"dir,optional"`
	Commands    hcl.Expression `hcl:"commands"`
}

type paramBlock struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default,optional"`
	KeywordOnly bool           `hcl:"keyword_only,optional"`
}

// isExprDefined reports whether expr appears in the source. gohcl fills omitted optional
// expressions with a zero-width placeholder.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

// Load parses the file at filename and returns the targets it declares. The vars blocks are
// evaluated immediately and written to the executor's store.
func Load(ctx context.Context, filename string, executor *shell.Executor) (*targets.Registry, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filepath.Base(filename))
	if diags.HasErrors() {
		return nil, eris.Wrapf(diags, "failed to parse %s", filename)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, eris.Wrapf(diags, "failed to decode %s", filename)
	}

	sctx := &scriptCtx{
		filepath: filename,
		executor: executor,
	}

	for _, block := range root.Vars {
		err = sctx.setVars(ctx, block)
		if err != nil {
			return nil, err
		}
	}

	registry := targets.NewRegistry()
	for _, block := range root.Targets {
		target, err := sctx.describe(ctx, block)
		if err != nil {
			return nil, err
		}

		err = registry.Register(target)
		if err != nil {
			return nil, err
		}
	}

	if registry.Len() == 0 {
		logctx.Log(ctx).Warn().Msgf("%s does not declare any targets", filepath.Base(filename))
	}
	return registry, nil
}

type scriptCtx struct {
	filepath string
	executor *shell.Executor
}

// setVars evaluates the attributes of block in source order. Each attribute can refer to the
// ones before it.
func (s *scriptCtx) setVars(ctx context.Context, block *varsBlock) error {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return eris.Wrap(diags, "invalid vars block")
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	store := s.executor.Store()
	for _, attr := range ordered {
		result, diags := attr.Expr.Value(s.evalContext(ctx, nil))
		if diags.HasErrors() {
			return eris.Wrapf(diags, "failed to evaluate %s", attr.Name)
		}

		converted, err := fromCty(result)
		if err != nil {
			return eris.Wrapf(err, "invalid value for %s", attr.Name)
		}
		store.Set(attr.Name, converted)
	}
	return nil
}

func (s *scriptCtx) describe(ctx context.Context, block *targetBlock) (*targets.Descriptor, error) {
	// gohcl never reports a missing expression attribute
	if !isExprDefined(block.Commands) {
		return nil, eris.Errorf("target %s has no commands", block.Name)
	}

	params := make([]targets.Param, len(block.Params))
	for idx, param := range block.Params {
		params[idx] = targets.Param{
			Name:        param.Name,
			KeywordOnly: param.KeywordOnly,
		}

		if !isExprDefined(param.Default) {
			continue
		}

		def, diags := param.Default.Value(s.evalContext(ctx, nil))
		if diags.HasErrors() {
			return nil, eris.Wrapf(diags, "invalid default for %s in target %s", param.Name, block.Name)
		}

		params[idx].HasDefault = true
		if !def.IsNull() {
			params[idx].Default, _ = fromCty(def)
		}
	}

	target := &hclTarget{block: block, script: s}
	return &targets.Descriptor{
		Name:      block.Name,
		Desc:      block.Description,
		Params:    params,
		VarArgs:   block.VarArgs,
		VarKwargs: block.VarKwargs,
		Invoker:   targets.Func(target.run),
	}, nil
}

// evalContext exposes the raw store values and the bound arguments of call (if any) to HCL
// expressions. References inside store values are resolved later by the executor.
func (s *scriptCtx) evalContext(ctx context.Context, call *targets.Call) *hcl.EvalContext {
	store := s.executor.Store()
	variables := make(map[string]cty.Value, store.Len())
	for _, name := range store.Names() {
		v, _ := store.Raw(name)
		variables[name] = toCty(v)
	}

	if call != nil {
		for _, arg := range call.Bound {
			variables[arg.Param.Name] = toCty(arg.Value)
		}

		if call.Target.VarArgs {
			args := make([]cty.Value, len(call.Args))
			for idx, arg := range call.Args {
				args[idx] = toCty(arg)
			}
			variables["args"] = cty.TupleVal(args)
		}

		if call.Target.VarKwargs {
			variables["kwargs"] = toCty(call.Kwargs)
		}
	}

	return &hcl.EvalContext{
		Variables: variables,
		Functions: functions(ctx, s),
	}
}

func (s *scriptCtx) normalizePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(filepath.Dir(s.filepath), path)
}
