package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rootAllow() AllowList {
	a := NewAllowList()
	a.Commands["echo"] = struct{}{}
	a.EnvKeys["HOME"] = struct{}{}
	a.Paths = []string{"/tmp/work"}
	a.NetworkHosts = []string{"api.example.com"}
	return a
}

func TestContextNarrowing(t *testing.T) {
	root := New(map[string]Value{"goal": StringValue("ship it")}, rootAllow(), Budget{MaxSubAgents: 4})

	narrowed := NewAllowList()
	narrowed.Commands["echo"] = struct{}{}
	narrowed.Paths = []string{"/tmp/work/sub"}

	child, err := root.Child(narrowed, Budget{MaxSubAgents: 1})
	require.NoError(t, err)
	assert.True(t, Narrows(root.AllowList(), child.AllowList()))

	v, ok := child.Get("goal")
	require.True(t, ok)
	assert.Equal(t, "ship it", v.Str)
}

func TestContextChildRejectsWidening(t *testing.T) {
	root := New(nil, rootAllow(), Budget{})

	wider := NewAllowList()
	wider.Commands["echo"] = struct{}{}
	wider.Commands["rm"] = struct{}{} // not in parent's allow-list

	_, err := root.Child(wider, Budget{})
	assert.Error(t, err)
}

func TestContextFreezeBlocksPut(t *testing.T) {
	ctx := New(nil, rootAllow(), Budget{})
	require.NoError(t, ctx.Put("a", StringValue("1")))

	ctx.Freeze()

	err := ctx.Put("b", StringValue("2"))
	assert.Error(t, err)

	// idempotent freeze
	ctx.Freeze()
	assert.True(t, ctx.Frozen())
}

func TestCheckPermission(t *testing.T) {
	ctx := New(nil, rootAllow(), Budget{})

	assert.True(t, ctx.CheckPermission(OpCommand, "echo").Allow)
	assert.False(t, ctx.CheckPermission(OpCommand, "rm").Allow)

	assert.True(t, ctx.CheckPermission(OpPath, "/tmp/work/file.txt").Allow)
	assert.False(t, ctx.CheckPermission(OpPath, "/etc/passwd").Allow)
	assert.False(t, ctx.CheckPermission(OpPath, "/tmp/work/../../etc/passwd").Allow)

	assert.True(t, ctx.CheckPermission(OpNetworkHost, "sub.api.example.com").Allow)
	assert.False(t, ctx.CheckPermission(OpNetworkHost, "evil.com").Allow)

	assert.True(t, ctx.CheckPermission(OpEnvKey, "HOME").Allow)
	assert.False(t, ctx.CheckPermission(OpEnvKey, "AWS_SECRET_KEY").Allow)
}

func TestSnapshotDeterministic(t *testing.T) {
	ctx := New(map[string]Value{"a": StringValue("x"), "b": NumberValue(3)}, rootAllow(), Budget{})
	ctx.Freeze()

	s1 := ctx.Snapshot()
	s2 := ctx.Snapshot()
	assert.Equal(t, s1.Hash, s2.Hash)

	require.NoError(t, func() error {
		other := New(map[string]Value{"a": StringValue("x"), "b": NumberValue(3)}, rootAllow(), Budget{})
		other.Freeze()
		s3 := other.Snapshot()
		if s3.Hash != s1.Hash {
			t.Fatalf("expected identical content to hash identically")
		}
		return nil
	}())
}

func TestDisjointAllowLists(t *testing.T) {
	a := NewAllowList()
	a.Paths = []string{"/tmp/a"}
	a.NetworkHosts = []string{"a.example.com"}

	b := NewAllowList()
	b.Paths = []string{"/tmp/b"}
	b.NetworkHosts = []string{"b.example.com"}

	assert.True(t, Disjoint(a, b))

	c := NewAllowList()
	c.Paths = []string{"/tmp/a/sub"}
	assert.False(t, Disjoint(a, c))
}
