package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mapOf(pairs ...interface{}) *Map {
	m := NewMap(len(pairs) / 2)
	for idx := 0; idx+1 < len(pairs); idx += 2 {
		m.Set(pairs[idx].(string), pairs[idx+1].(Value))
	}
	return m
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Value
	}{
		{"int", "1", Int(1)},
		{"negative int", "-2", Int(-2)},
		{"float", "1.5", Float(1.5)},
		{"integral float", "1.0", Float(1)},
		{"true", "true", Bool(true)},
		{"false", "false", Bool(false)},
		{"capitalized bool", "True", String("True")},
		{"double quoted", `"quoted"`, String("quoted")},
		{"escaped quote", `"a\"b"`, String(`a"b`)},
		{"single quoted", `'single'`, String("single")},
		{"plain word", "hello", String("hello")},
		{"plain words", "hello world", String("hello world")},
		{"null", "null", String("null")},
		{"hex", "0x1F", String("0x1F")},
		{"leading zero", "01", String("01")},
		{"empty", "", String("")},
		{"list", `[1, "a", true]`, List{Int(1), String("a"), Bool(true)}},
		{"empty list", "[]", List{}},
		{"map", `{"k": [1, 2]}`, mapOf("k", List{Int(1), Int(2)})},
		{"relaxed map", `{k: 'v', n: 1}`, mapOf("k", String("v"), "n", Int(1))},
		{"map keeps order", `{"b": 1, "a": 2}`, mapOf("b", Int(1), "a", Int(2))},
		{"block list", "- a\n- b", String("- a\n- b")},
		{"block map", "a: 1", String("a: 1")},
		{"comment", "1 # one", String("1 # one")},
		{"broken", "[1, 2", String("[1, 2")},
		{"null in list", "[1, null]", String("[1, null]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Decode(tt.text)); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"nil", nil, ""},
		{"string", String("x y"), "x y"},
		{"int", Int(3), "3"},
		{"float", Float(2), "2.0"},
		{"fraction", Float(0.25), "0.25"},
		{"bool", Bool(true), "true"},
		{"list", List{Int(1), String("a")}, `[1, "a"]`},
		{"nested", mapOf("k", List{}, "s", String("a\n\"b\"")), `{"k": [], "s": "a\n\"b\""}`},
		{"empty map", NewMap(0), "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.value))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	values := []Value{
		List{Int(1), Float(2), Bool(false), String("x"), List{String("nested")}},
		mapOf("name", String("demo"), "ports", List{Int(80), Int(443)}, "opts", mapOf("tls", Bool(true))),
		List{String(`quote " and backslash \`), String("tab\tnewline\n")},
	}

	for _, v := range values {
		if diff := cmp.Diff(v, Decode(Encode(v))); diff != "" {
			t.Errorf("round trip of %s mismatch (-want +got):\n%s", Encode(v), diff)
		}
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, `["a", "b"]`, Canonical(`['a', 'b']`))
	assert.Equal(t, `{"a": 1}`, Canonical(`{a: 1}`))
	assert.Equal(t, "hello", Canonical("hello"))
	assert.Equal(t, "'5'", Canonical("'5'"))
	assert.Equal(t, "1.50", Canonical("1.50"))
}

func TestFromYAML(t *testing.T) {
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`
base: &base
  name: demo
  tags:
    - a
    - b
copy: *base
count: 3
ratio: 0.5
on: yes
`), &doc))

	result, err := FromYAML(&doc)
	require.NoError(t, err)

	m, ok := result.(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"base", "copy", "count", "ratio", "on"}, m.Keys())

	base, _ := m.Get("base")
	copied, _ := m.Get("copy")
	assert.True(t, Equal(base, copied))
	assert.True(t, Equal(mapOf("name", String("demo"), "tags", List{String("a"), String("b")}), base))

	count, _ := m.Get("count")
	assert.Equal(t, Int(3), count)
	ratio, _ := m.Get("ratio")
	assert.Equal(t, Float(0.5), ratio)
	// yaml.v3 only treats true and false as booleans
	on, _ := m.Get("on")
	assert.Equal(t, String("yes"), on)

	var nullDoc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("key: ~\n"), &nullDoc))
	_, err = FromYAML(&nullDoc)
	assert.Error(t, err)
}

func TestFromInterface(t *testing.T) {
	result, err := FromInterface(map[string]interface{}{
		"b": []interface{}{1, "x", true, 1.5},
		"a": int64(2),
	})
	require.NoError(t, err)
	assert.True(t, Equal(mapOf("a", Int(2), "b", List{Int(1), String("x"), Bool(true), Float(1.5)}), result))

	_, err = FromInterface(nil)
	assert.Error(t, err)

	_, err = FromInterface(struct{}{})
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	list := List{Int(1), Int(2), Int(3)}

	v, ok := Lookup(list, "1")
	require.True(t, ok)
	assert.Equal(t, Int(2), v)

	v, ok = Lookup(list, "-1")
	require.True(t, ok)
	assert.Equal(t, Int(3), v)

	_, ok = Lookup(list, "3")
	assert.False(t, ok)
	_, ok = Lookup(list, "-4")
	assert.False(t, ok)
	_, ok = Lookup(list, "x")
	assert.False(t, ok)

	v, ok = Lookup(mapOf("k", String("v")), "k")
	require.True(t, ok)
	assert.Equal(t, String("v"), v)

	_, ok = Lookup(mapOf("k", String("v")), "missing")
	assert.False(t, ok)
	_, ok = Lookup(String("text"), "0")
	assert.False(t, ok)
}

func TestMap(t *testing.T) {
	m := NewMap(0)
	m.Set("a", Int(1))
	m.Set("b", Int(2))
	m.Set("a", Int(3))

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Has("b"))
	assert.False(t, m.Has("c"))
	assert.Equal(t, `{"a": 3, "b": 2}`, m.String())

	var empty *Map
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Keys())
	assert.False(t, empty.Has("a"))

	assert.False(t, mapOf("a", Int(1), "b", Int(2)).Equal(mapOf("b", Int(2), "a", Int(1))))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Int(1)))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(List{String("a")}, List{String("a")}))
	assert.False(t, Equal(List{String("a")}, List{String("a"), String("b")}))
	assert.Equal(t, "map", MapKind.String())
	assert.Equal(t, "list", List{}.Kind().String())
}
