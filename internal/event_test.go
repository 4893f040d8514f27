package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testTable := []struct {
		op   Op
		kind Kind
		ok   bool
	}{
		{op: Create, kind: KindCreate, ok: true},
		{op: Write, kind: KindModify, ok: true},
		{op: Remove, kind: KindRemove, ok: true},
		{op: Rename, kind: KindRename, ok: true},
		{op: Create | Write, kind: KindCreate, ok: true},
		{op: Chmod, ok: false},
		{op: 0, ok: false},
	}

	for _, td := range testTable {
		kind, ok := Classify(td.op)
		require.Equal(t, td.ok, ok, td.op.String())
		require.Equal(t, td.kind, kind, td.op.String())
	}
}

func TestOp_String(t *testing.T) {
	require.Equal(t, "CREATE|WRITE", (Create | Write).String())
	require.Equal(t, "[no events]", Op(0).String())
	require.Contains(t, Event{Name: "a.js", Op: Remove}.String(), `"a.js"`)
}

func TestAccepts(t *testing.T) {
	accepted := []string{"index.html", "src/app.js", "a/b/c.d.ts", "/lib/x.css", "", "dir/file."}
	for _, p := range accepted {
		require.True(t, Accepts(p), p)
	}

	rejected := []string{".env", ".git/config", "src/.cache/x.js", "a/.hidden", "./index.html", "a/../b"}
	for _, p := range rejected {
		require.False(t, Accepts(p), p)
	}
}
