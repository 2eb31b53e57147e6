package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool true", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"go map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Object{"y": Int(1), "x": Int(2)},
	}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(got))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// e + combining acute accent normalises to the precomposed form.
	got, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	// A literal backslash followed by u2028 stays escaped.
	got, err = MarshalCanonical(String(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"price": 1.5})
	assert.Error(t, err)
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as a surrogate pair starting 0xD83D, which sorts
	// before U+FF5E in UTF-16 but after it in UTF-8.
	obj := Object{"\U0001F600": Int(1), "\uFF5E": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFF5E"}, obj.SortedKeys())
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	_, err := Unmarshal([]byte(`{"amount": 1.25}`))
	assert.Error(t, err)
}

func TestUnmarshalRoundTrip(t *testing.T) {
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Mug","qty":3,"tags":["a"],"archived":false,"note":null}`), &obj))

	assert.Equal(t, String("Mug"), obj["name"])
	assert.Equal(t, Int(3), obj["qty"])
	assert.Equal(t, Array{String("a")}, obj["tags"])
	assert.Equal(t, Bool(false), obj["archived"])
	assert.Equal(t, Null{}, obj["note"])

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Mug","qty":3,"tags":["a"],"archived":false,"note":null}`, string(out))
}

func TestEqual(t *testing.T) {
	a := Object{"x": Array{Int(1), String("y")}}
	b := Object{"x": Array{Int(1), String("y")}}
	c := Object{"x": Array{Int(2), String("y")}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(Null{}, Null{}))
}

func TestCloneIsDeep(t *testing.T) {
	orig := Object{"inner": Object{"n": Int(1)}}
	cp := orig.Clone()
	cp["inner"].(Object)["n"] = Int(2)

	assert.Equal(t, Int(1), orig["inner"].(Object)["n"])
}

func TestFromGoYAMLStyleNumbers(t *testing.T) {
	v, err := FromGo(map[string]any{"qty": 4, "total": float64(1200)})
	require.NoError(t, err)
	assert.Equal(t, Object{"qty": Int(4), "total": Int(1200)}, v)

	_, err = FromGo(2.5)
	assert.Error(t, err)
}

func TestHashDomainSeparation(t *testing.T) {
	obj := Object{"search": String("mug")}
	h1 := MustHash(DomainFilter, obj)
	h2 := MustHash("tally/other/v1", obj)
	h3 := MustHash(DomainFilter, Object{"search": String("mug")})

	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, h3)
}

func TestText(t *testing.T) {
	assert.Equal(t, "Mug", Text(String("Mug")))
	assert.Equal(t, "12", Text(Int(12)))
	assert.Equal(t, "", Text(Null{}))
	assert.Equal(t, "true", Text(Bool(true)))
}
