package starscript

import (
	"os"
	"strconv"
	"strings"

	"github.com/JulianFerry/easymake/pkg/dispatch"
	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

func logAt(thread *starlark.Thread, evt *zerolog.Event, msg string) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	if name := dispatch.CurrentTarget(ctx.ctx); name != "" {
		evt = evt.Str("target", name)
	}
	evt.Msgf("%s:%d:%d: %s", simplifyPath(ctx.script.filepath), pos.Line, pos.Col, msg)
}

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	logAt(thread, logctx.Log(getCtx(thread).ctx).Info(), message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	logAt(thread, logctx.Log(getCtx(thread).ctx).Warn(), message)
	return starlark.None, nil
}

func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

func getenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var defaultValue starlark.Value = starlark.String("")

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "key", &key, "default?", &defaultValue)
	if err != nil {
		return nil, err
	}

	env, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	return starlark.String(env), nil
}

func setvar(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var raw starlark.Value

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &name, &raw)
	if err != nil {
		return nil, err
	}

	converted, err := starlarkToValue(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid value for variable %s", name)
	}

	getCtx(thread).script.store.Set(name, converted)
	return starlark.None, nil
}

func getvar(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.Value = starlark.None

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue)
	if err != nil {
		return nil, err
	}

	v, ok := getCtx(thread).script.store.Get(name)
	if !ok {
		return defaultValue, nil
	}
	return valueToStarlark(v)
}

func interpolate(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &text)
	if err != nil {
		return nil, err
	}

	return starlark.String(getCtx(thread).script.store.Interpolate(text)), nil
}

func fromPath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	path := "Makefile"

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path?", &path)
	if err != nil {
		return nil, err
	}

	sctx := getCtx(thread).script
	err = sctx.store.FromPath(path, sctx.filepath)
	if err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func readYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var yamlFile string
	var yamlKey string
	var defaultValue starlark.Value = starlark.None

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &yamlFile, &yamlKey, &defaultValue)
	if err != nil {
		return nil, err
	}

	sctx := getCtx(thread).script
	yamlFile = normalizePath(sctx, yamlFile)

	doc, loaded := sctx.yamlCache[yamlFile]
	if !loaded {
		content, err := os.ReadFile(yamlFile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open file %s", yamlFile)
		}

		doc = new(yaml.Node)
		err = yaml.Unmarshal(content, doc)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse file %s", yamlFile)
		}
		sctx.yamlCache[yamlFile] = doc
	}

	node := yamlLookup(doc, yamlKey)
	if node == nil || node.ShortTag() == "!!null" {
		return defaultValue, nil
	}

	converted, err := value.FromYAML(node)
	if err != nil {
		return nil, eris.Wrapf(err, "can't read %s from %s", yamlKey, yamlFile)
	}
	return valueToStarlark(converted)
}

// yamlLookup follows a dotted key ("deps.0.url") through the document. An empty key returns
// the whole document.
func yamlLookup(doc *yaml.Node, key string) *yaml.Node {
	node := doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}

	if key == "" {
		return node
	}

	for _, part := range strings.Split(key, ".") {
		if node.Kind == yaml.AliasNode {
			node = node.Alias
		}

		switch node.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for idx := 0; idx+1 < len(node.Content); idx += 2 {
				if node.Content[idx].Value == part {
					next = node.Content[idx+1]
					break
				}
			}
			if next == nil {
				return nil
			}
			node = next
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node.Content) {
				return nil
			}
			node = node.Content[idx]
		default:
			return nil
		}
	}

	return node
}

func commandArgs(fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (string, string, error) {
	var command string
	var cwd starlark.Value = starlark.None

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "cmd", &command, "cwd?", &cwd)
	if err != nil {
		return "", "", err
	}

	switch cwd := cwd.(type) {
	case starlark.NoneType:
		return command, "", nil
	case starlark.String:
		return command, cwd.GoString(), nil
	}
	return "", "", eris.Errorf("%s: got %s for cwd, want string or None", fn.Name(), cwd.Type())
}

func starRun(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	command, cwd, err := commandArgs(fn, args, kwargs)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	err = ctx.script.executor.Run(ctx.ctx, command, cwd)
	if err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func starCapture(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	command, cwd, err := commandArgs(fn, args, kwargs)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	output, err := ctx.script.executor.Capture(ctx.ctx, command, cwd)
	if err != nil {
		return nil, err
	}
	return starlark.String(output), nil
}

func target(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var function *starlark.Function
	var name string
	var desc string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "fn", &function, "name?", &name, "desc?", &desc)
	if err != nil {
		return nil, err
	}

	sctx := getCtx(thread).script
	if !sctx.initPhase {
		return nil, eris.New("can only be called while the script is loaded (in the global scope)")
	}

	if name == "" {
		name = function.Name()
	}
	if desc == "" {
		desc = function.Doc()
	}

	sctx.explicit = append(sctx.explicit, explicitTarget{name: name, desc: desc, fn: function})
	return function, nil
}
