package batch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccess = AccessFunc(func(name string) Access {
	switch name {
	case "Read", "Glob", "Grep":
		return AccessRead
	case "Write", "Edit":
		return AccessWrite
	case "Bash":
		return AccessNone
	default:
		return AccessUnknown
	}
})

func inv(name, input string) Invocation {
	return Invocation{Name: name, Input: json.RawMessage(input)}
}

func TestArguments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{"object", `{"file_path":"/a","n":1}`, map[string]any{"file_path": "/a", "n": 1.0}},
		{"encoded string", `"{\"file_path\":\"/a\"}"`, map[string]any{"file_path": "/a"}},
		{"empty", ``, map[string]any{}},
		{"null", `null`, map[string]any{}},
		{"empty string", `""`, map[string]any{}},
		{"whitespace", `  {"a":true}  `, map[string]any{"a": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inv("x", tt.input).Arguments()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArguments_Invalid(t *testing.T) {
	for _, input := range []string{`[1,2]`, `42`, `"not json"`, `{broken`, `"[1]"`} {
		_, err := inv("x", input).Arguments()
		assert.ErrorIs(t, err, ErrInvalidArguments, input)
	}
}

func TestNewInvocation(t *testing.T) {
	a := NewInvocation("Read", nil)
	b := NewInvocation("Read", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Read", a.Name)
}

func TestFootprint(t *testing.T) {
	c := NewClassifier(testAccess, WithBaseDir("/work"))

	fp := c.Footprint(inv("Edit", `{"file_path":"src/../main.go","old_string":"a"}`))
	assert.Equal(t, AccessWrite, fp.Access)
	assert.Equal(t, []string{"/work/main.go"}, fp.Paths)

	fp = c.Footprint(inv("Read", `{"file_path":"/etc/hosts"}`))
	assert.Equal(t, []string{"/etc/hosts"}, fp.Paths)

	fp = c.Footprint(inv("mcp__fs__move", `{"source":"/a","destination":"/b","target":"/a"}`))
	assert.Equal(t, AccessUnknown, fp.Access)
	assert.ElementsMatch(t, []string{"/a", "/b"}, fp.Paths)

	fp = c.Footprint(inv("mcp__fs__multi", `{"path":["/x","/y",3]}`))
	assert.ElementsMatch(t, []string{"/x", "/y"}, fp.Paths)

	fp = c.Footprint(inv("Bash", `{"command":"rm -rf /tmp/x","path":"/tmp/x"}`))
	assert.Equal(t, AccessNone, fp.Access)
	assert.Empty(t, fp.Paths)

	fp = c.Footprint(inv("Write", `not json`))
	assert.Empty(t, fp.Paths)
}

func TestFootprint_CustomKeys(t *testing.T) {
	c := NewClassifier(testAccess, WithPathKeys("uri"))
	fp := c.Footprint(inv("Write", `{"uri":"/a","file_path":"/b"}`))
	assert.Equal(t, []string{"/a"}, fp.Paths)
}

func TestConflicts(t *testing.T) {
	c := NewClassifier(testAccess)

	tests := []struct {
		name string
		a, b Invocation
		want bool
	}{
		{"read/read same path", inv("Read", `{"file_path":"/a"}`), inv("Read", `{"file_path":"/a"}`), false},
		{"read/write same path", inv("Read", `{"file_path":"/a"}`), inv("Write", `{"file_path":"/a"}`), true},
		{"write/write same path", inv("Write", `{"file_path":"/a"}`), inv("Edit", `{"file_path":"/a"}`), true},
		{"write/write disjoint", inv("Write", `{"file_path":"/a"}`), inv("Write", `{"file_path":"/b"}`), false},
		{"dir contains file", inv("Grep", `{"path":"/src"}`), inv("Edit", `{"file_path":"/src/x.go"}`), true},
		{"sibling prefix is not containment", inv("Write", `{"file_path":"/src"}`), inv("Write", `{"file_path":"/src2/x"}`), false},
		{"unknown vs read", inv("mcp__fs__touch", `{"path":"/a"}`), inv("Read", `{"file_path":"/a"}`), true},
		{"unknown without path", inv("mcp__web__fetch", `{"url":"x"}`), inv("Write", `{"file_path":"/a"}`), false},
		{"bash is independent", inv("Bash", `{"command":"ls"}`), inv("Write", `{"file_path":"/a"}`), false},
		{"no paths", inv("Write", `{}`), inv("Write", `{}`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Conflicts(tt.a, tt.b))
			assert.Equal(t, tt.want, c.Conflicts(tt.b, tt.a), "conflict must be symmetric")
		})
	}
}

func TestConflicts_RootContainsEverything(t *testing.T) {
	c := NewClassifier(testAccess)
	assert.True(t, c.Conflicts(inv("Write", `{"path":"/"}`), inv("Read", `{"file_path":"/etc/hosts"}`)))
}

func TestNilAccessIsUnknown(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, AccessUnknown, c.Footprint(inv("anything", `{}`)).Access)
	assert.True(t, c.Conflicts(inv("a", `{"path":"/x"}`), inv("b", `{"path":"/x"}`)))
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "unknown", AccessUnknown.String())
	assert.Equal(t, "none", AccessNone.String())
	assert.Equal(t, "read", AccessRead.String())
	assert.Equal(t, "write", AccessWrite.String())
	assert.True(t, AccessUnknown.Mutating())
	assert.False(t, AccessRead.Mutating())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		base, in, want string
	}{
		{"/work", "a.txt", "/work/a.txt"},
		{"/work", "./x/../a.txt", "/work/a.txt"},
		{"/work", "/abs//a.txt", "/abs/a.txt"},
		{"/work", "  a.txt\n", "/work/a.txt"},
		{"", "rel/../a.txt", "a.txt"},
		{"/work", "   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.base, tt.in), "%q", tt.in)
	}
}
