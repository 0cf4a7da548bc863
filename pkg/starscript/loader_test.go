package starscript

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JulianFerry/easymake/pkg/dispatch"
	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/shell"
	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/JulianFerry/easymake/pkg/vars"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx    context.Context
	dir    string
	store  *vars.Store
	output *bytes.Buffer
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		dir:    t.TempDir(),
		output: &bytes.Buffer{},
		logs:   &bytes.Buffer{},
	}

	logger := zerolog.New(f.logs)
	f.ctx = logctx.WithLogger(context.Background(), &logger)
	f.store = vars.New(logger, vars.WithLookupEnv(func(string) (string, bool) { return "", false }))
	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func (f *fixture) load(t *testing.T, script string) (*targets.Registry, error) {
	t.Helper()

	path := f.write(t, "Makefile.star", script)
	return Load(f.ctx, path, shell.NewExecutor(f.store, shell.WithOutput(f.output)))
}

func (f *fixture) get(t *testing.T, name string) value.Value {
	t.Helper()

	v, ok := f.store.Get(name)
	require.True(t, ok, "variable %s is not set", name)
	return v
}

const exampleScript = `
def build(name="app", verbose=False):
    """Builds the app"""
    setvar("built", name)
    setvar("verbose", verbose)

def _helper():
    pass

def test(x):
    setvar("x", x)

def help():
    pass
`

func TestLoadDiscoversFunctions(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, exampleScript)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "test", "help"}, registry.Names())

	build, _ := registry.Lookup("build")
	assert.Equal(t, "Builds the app", build.Desc)
	assert.Equal(t, "build(name=app, verbose=false)", build.Signature())

	test, _ := registry.Lookup("test")
	require.Len(t, test.Params, 1)
	assert.False(t, test.Params[0].HasDefault)
}

func TestRunBindsFlagsAndKeywords(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, exampleScript)
	require.NoError(t, err)

	require.NoError(t, dispatch.New(registry).Run(f.ctx, []string{"-verbose", "name=demo"}))
	assert.Equal(t, value.String("demo"), f.get(t, "built"))
	assert.Equal(t, value.Bool(true), f.get(t, "verbose"))

	require.NoError(t, dispatch.New(registry).Run(f.ctx, []string{"test", "x=[1, 2]"}))
	assert.True(t, value.Equal(value.List{value.Int(1), value.Int(2)}, f.get(t, "x")))
}

func TestRunUsesNativeDefaults(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `
def build(cb=None, items=[]):
    setvar("cb", cb == None)
    setvar("items", len(items))
`)
	require.NoError(t, err)

	build, _ := registry.Lookup("build")
	assert.True(t, build.Params[0].HasDefault)
	assert.Nil(t, build.Params[0].Default)

	require.NoError(t, dispatch.New(registry).Run(f.ctx, nil))
	assert.Equal(t, value.Bool(true), f.get(t, "cb"))
	assert.Equal(t, value.Int(0), f.get(t, "items"))
}

func TestRunMissingArgument(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, exampleScript)
	require.NoError(t, err)

	err = dispatch.New(registry).Run(f.ctx, []string{"test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 1 argument (x)")

	_, ok := f.store.Raw("x")
	assert.False(t, ok)
}

func TestRunPassesExtras(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `
def deploy(mode="dev", *args, region="eu", **kwargs):
    setvar("mode", mode)
    setvar("args", args)
    setvar("region", region)
    setvar("kwargs", kwargs)
`)
	require.NoError(t, err)

	deploy, _ := registry.Lookup("deploy")
	assert.True(t, deploy.VarArgs)
	assert.True(t, deploy.VarKwargs)
	region, ok := deploy.Param("region")
	require.True(t, ok)
	assert.True(t, region.KeywordOnly)

	require.NoError(t, dispatch.New(registry).Run(f.ctx, []string{"deploy", "one", "-ab", "port=80", "region=us"}))
	assert.Equal(t, value.String("dev"), f.get(t, "mode"))
	assert.Equal(t, value.String("us"), f.get(t, "region"))
	assert.True(t, value.Equal(value.List{value.String("one"), value.String("-a"), value.String("-b")}, f.get(t, "args")))

	expected := value.NewMap(1)
	expected.Set("port", value.Int(80))
	assert.True(t, value.Equal(expected, f.get(t, "kwargs")))
}

func TestExplicitTargets(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `
def _b():
    setvar("called", "b")

def ignored():
    pass

target(_b, name="bee", desc="does b")
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"bee"}, registry.Names())

	bee, _ := registry.Lookup("bee")
	assert.Equal(t, "does b", bee.Desc)

	require.NoError(t, dispatch.New(registry).Run(f.ctx, nil))
	assert.Equal(t, value.String("b"), f.get(t, "called"))
}

func TestTargetOnlyAtLoadTime(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `
def late():
    target(late)
`)
	require.NoError(t, err)

	err = dispatch.New(registry).Run(f.ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can only be called while the script is loaded")
}

func TestRunAndCapture(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `
setvar("greeting", "hello")

def greet():
    setvar("out", capture("echo $greeting; echo done"))
    run("echo streamed")
`)
	require.NoError(t, err)

	require.NoError(t, dispatch.New(registry).Run(f.ctx, nil))
	assert.Equal(t, value.String("hello\ndone"), f.get(t, "out"))
	assert.Equal(t, "streamed\n", f.output.String())
}

func TestCommandFailureKeepsExitCode(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `
def broken():
    run("sh -c 'exit 3'")
    setvar("after", True)
`)
	require.NoError(t, err)

	err = dispatch.New(registry).Run(f.ctx, nil)
	var cmdErr *shell.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, 3, dispatch.ExitCode(err))

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Contains(t, scriptErr.Backtrace, "broken")

	_, ok := f.store.Raw("after")
	assert.False(t, ok)
}

func TestVariableBuiltins(t *testing.T) {
	f := newFixture(t)

	_, err := f.load(t, `
setvar("P", {"k": [1, 2, 3]})
setvar("second", interpolate("$P['k'][1]"))
setvar("fallback", getvar("nope", "dflt"))
setvar("nested", getvar("P")["k"][2])
from_path("proj/Makefile")
`)
	require.NoError(t, err)

	assert.Equal(t, value.String("2"), f.get(t, "second"))
	assert.Equal(t, value.String("dflt"), f.get(t, "fallback"))
	assert.Equal(t, value.Int(3), f.get(t, "nested"))
	assert.Equal(t, value.String(filepath.Base(f.dir)), f.get(t, "proj_name"))
	assert.Equal(t, value.String("Makefile.star"), f.get(t, "Makefile_name"))
}

func TestReadYaml(t *testing.T) {
	f := newFixture(t)
	f.write(t, "config.yml", `
deps:
  - name: foo
    version: 2
  - name: bar
    tags: [a, b]
empty:
`)

	_, err := f.load(t, `
setvar("name", read_yaml("config.yml", "deps.0.name"))
setvar("version", read_yaml("config.yml", "deps.0.version"))
setvar("tags", read_yaml("config.yml", "deps.1.tags"))
setvar("missing", read_yaml("config.yml", "deps.5.name", "fallback"))
setvar("empty", read_yaml("config.yml", "empty", "none"))
`)
	require.NoError(t, err)

	assert.Equal(t, value.String("foo"), f.get(t, "name"))
	assert.Equal(t, value.Int(2), f.get(t, "version"))
	assert.True(t, value.Equal(value.List{value.String("a"), value.String("b")}, f.get(t, "tags")))
	assert.Equal(t, value.String("fallback"), f.get(t, "missing"))
	assert.Equal(t, value.String("none"), f.get(t, "empty"))
}

func TestLogBuiltins(t *testing.T) {
	f := newFixture(t)

	_, err := f.load(t, `
info("loading")
warn("careful")
print("printed")
`)
	require.NoError(t, err)

	logs := f.logs.String()
	assert.Contains(t, logs, `"level":"info"`)
	assert.Contains(t, logs, "Makefile.star:2:")
	assert.Contains(t, logs, "loading")
	assert.Contains(t, logs, `"level":"warn"`)
	assert.Contains(t, logs, "printed")
}

func TestLoadErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.load(t, `error("boom")`)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Contains(t, scriptErr.Backtrace, "boom")

	_, err = f.load(t, "def broken(:\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute")

	_, err = Load(f.ctx, filepath.Join(f.dir, "missing.star"), shell.NewExecutor(f.store))
	assert.Error(t, err)
}

func TestLoadWithoutTargets(t *testing.T) {
	f := newFixture(t)

	registry, err := f.load(t, `x = 1`)
	require.NoError(t, err)
	assert.Zero(t, registry.Len())
	assert.Contains(t, f.logs.String(), "does not declare any targets")
}
