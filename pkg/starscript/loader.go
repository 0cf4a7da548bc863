// Package starscript loads build targets from Starlark scripts.
//
// Every top-level function of a script is a target unless the script registers its targets
// explicitly with target(). The variable store and the command executor are exposed to the
// script as builtins.
package starscript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/shell"
	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/JulianFerry/easymake/pkg/vars"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"gopkg.in/yaml.v3"
)

// ScriptError is returned when a script fails. The message is the Starlark backtrace.
type ScriptError struct {
	Backtrace string
	Err       error
}

var _ error = (*ScriptError)(nil)

func (e *ScriptError) Error() string {
	return e.Backtrace
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func wrapEvalError(err error) error {
	var evalError *starlark.EvalError
	if errors.As(err, &evalError) {
		return &ScriptError{Backtrace: evalError.Backtrace(), Err: err}
	}
	return err
}

type explicitTarget struct {
	name string
	desc string
	fn   *starlark.Function
}

type scriptCtx struct {
	filepath  string
	store     *vars.Store
	executor  *shell.Executor
	yamlCache map[string]*yaml.Node
	explicit  []explicitTarget
	initPhase bool
}

type threadCtx struct {
	ctx    context.Context
	script *scriptCtx
}

const threadCtxKey = "easymakeCtx"

func getCtx(thread *starlark.Thread) *threadCtx {
	return thread.Local(threadCtxKey).(*threadCtx)
}

func newThread(ctx context.Context, name string, script *scriptCtx) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			logctx.Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	thread.SetLocal(threadCtxKey, &threadCtx{ctx: ctx, script: script})
	return thread
}

// cancelOnDone stops thread once ctx is cancelled. The returned function releases the watcher.
func cancelOnDone(ctx context.Context, thread *starlark.Thread) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	return func() {
		close(done)
	}
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"OS":          starlark.String(runtime.GOOS),
		"ARCH":        starlark.String(runtime.GOARCH),
		"info":        starlark.NewBuiltin("info", starInfo),
		"warn":        starlark.NewBuiltin("warn", starWarn),
		"error":       starlark.NewBuiltin("error", starError),
		"getenv":      starlark.NewBuiltin("getenv", getenv),
		"setvar":      starlark.NewBuiltin("setvar", setvar),
		"getvar":      starlark.NewBuiltin("getvar", getvar),
		"interpolate": starlark.NewBuiltin("interpolate", interpolate),
		"from_path":   starlark.NewBuiltin("from_path", fromPath),
		"read_yaml":   starlark.NewBuiltin("read_yaml", readYaml),
		"run":         starlark.NewBuiltin("run", starRun),
		"capture":     starlark.NewBuiltin("capture", starCapture),
		"target":      starlark.NewBuiltin("target", target),
	}
}

// Load executes the script at filename and returns the targets it declares. Commands run by the
// script and its targets go through executor.
func Load(ctx context.Context, filename string, executor *shell.Executor) (*targets.Registry, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	sctx := &scriptCtx{
		filepath:  filename,
		store:     executor.Store(),
		executor:  executor,
		yamlCache: make(map[string]*yaml.Node),
		initPhase: true,
	}

	thread := newThread(ctx, "main", sctx)
	release := cancelOnDone(ctx, thread)
	globals, err := starlark.ExecFile(thread, simplifyPath(filename), script, predeclared())
	release()
	if err != nil {
		return nil, eris.Wrapf(wrapEvalError(err), "failed to execute %s", simplifyPath(filename))
	}
	sctx.initPhase = false

	registry := targets.NewRegistry()
	if len(sctx.explicit) > 0 {
		for _, item := range sctx.explicit {
			err = registry.Register(describe(item.name, item.desc, item.fn, sctx))
			if err != nil {
				return nil, err
			}
		}
		return registry, nil
	}

	names, err := definedFunctions(filename, script)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		fn, ok := globals[name].(*starlark.Function)
		if !ok {
			continue
		}

		err = registry.Register(describe(name, fn.Doc(), fn, sctx))
		if err != nil {
			return nil, err
		}
	}

	if registry.Len() == 0 {
		logctx.Log(ctx).Warn().Msgf("%s does not declare any targets", simplifyPath(filename))
	}
	return registry, nil
}

// definedFunctions lists the public top-level functions of a script in source order
func definedFunctions(filename string, script []byte) ([]string, error) {
	file, err := syntax.Parse(filename, script, 0)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", filename)
	}

	names := make([]string, 0)
	for _, stmt := range file.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		names = append(names, def.Name.Name)
	}
	return names, nil
}

func simplifyPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return path
	}
	return relPath
}

func normalizePath(sctx *scriptCtx, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(filepath.Dir(sctx.filepath), path)
}
