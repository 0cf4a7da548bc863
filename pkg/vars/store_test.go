package vars

import (
	"bytes"
	"strings"
	"testing"

	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, env map[string]string) (*Store, *bytes.Buffer) {
	t.Helper()

	buffer := &bytes.Buffer{}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	return New(zerolog.New(buffer), WithLookupEnv(lookup)), buffer
}

func warnings(buffer *bytes.Buffer) int {
	return strings.Count(buffer.String(), `"level":"warn"`)
}

func TestGetResolvesTransitively(t *testing.T) {
	store, logs := newTestStore(t, nil)
	store.Set("a", value.String("x"))
	store.Set("b", value.String("$a"))
	store.Set("c", value.String("$b"))

	b, ok := store.Get("b")
	require.True(t, ok)
	assert.Equal(t, value.String("x"), b)

	c, ok := store.Get("c")
	require.True(t, ok)
	assert.Equal(t, value.String("x"), c)
	assert.Zero(t, warnings(logs))
}

func TestGetIsNotMemoized(t *testing.T) {
	store, _ := newTestStore(t, nil)
	store.Set("a", value.String("x"))
	store.Set("b", value.String("$a-suffix"))

	first, _ := store.Get("b")
	store.Set("a", value.String("y"))
	second, _ := store.Get("b")

	assert.Equal(t, value.String("x-suffix"), first)
	assert.Equal(t, value.String("y-suffix"), second)
}

func TestGetSelfReference(t *testing.T) {
	store, logs := newTestStore(t, nil)
	store.Set("a", value.String("$b"))
	store.Set("b", value.String("$a"))

	a, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, value.String("$b"), a)
	assert.Equal(t, 1, warnings(logs))
}

func TestGetReturnsCollectionsUnchanged(t *testing.T) {
	store, _ := newTestStore(t, nil)
	list := value.List{value.String("$a"), value.Int(1)}
	store.Set("l", list)

	got, ok := store.Get("l")
	require.True(t, ok)
	assert.True(t, value.Equal(list, got))

	raw, ok := store.Raw("l")
	require.True(t, ok)
	assert.True(t, value.Equal(list, raw))
}

func TestResolveOrEnv(t *testing.T) {
	store, _ := newTestStore(t, map[string]string{"HOME": "/home/me", "x": "env"})
	store.Set("x", value.String("store"))

	v, ok := store.ResolveOrEnv("x")
	require.True(t, ok)
	assert.Equal(t, value.String("store"), v)

	v, ok = store.ResolveOrEnv("HOME")
	require.True(t, ok)
	assert.Equal(t, value.String("/home/me"), v)

	_, ok = store.ResolveOrEnv("missing")
	assert.False(t, ok)
}

func TestSetKeepsFirstPosition(t *testing.T) {
	store, _ := newTestStore(t, nil)
	store.Set("b", value.Int(1))
	store.Set("a", value.Int(2))
	store.Set("b", value.Int(3))

	assert.Equal(t, []string{"b", "a"}, store.Names())
	assert.Equal(t, 2, store.Len())

	b, _ := store.Get("b")
	assert.Equal(t, value.Int(3), b)
}

func TestFromPath(t *testing.T) {
	store, _ := newTestStore(t, nil)
	require.NoError(t, store.FromPath("repo/tools/Makefile", "/work/repo/tools/Makefile.star"))

	expected := map[string]string{
		"Makefile_path": "/work/repo/tools/Makefile.star",
		"Makefile_name": "Makefile.star",
		"tools_path":    "/work/repo/tools",
		"tools_name":    "tools",
		"repo_path":     "/work/repo",
		"repo_name":     "repo",
	}

	for name, want := range expected {
		got, ok := store.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, value.String(want), got, name)
	}
	assert.Equal(t, len(expected), store.Len())
}

func TestFromPathRejectsOtherNames(t *testing.T) {
	store, _ := newTestStore(t, nil)
	err := store.FromPath("repo/build.star", "/work/repo/build.star")
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}
