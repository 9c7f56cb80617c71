package beingdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgStringQuotesStringsOnly(t *testing.T) {
	require.Equal(t, "foo", Atom("foo").String())
	require.Equal(t, `"foo"`, Str("foo").String())
}

func TestFactString(t *testing.T) {
	f := Fact{Predicate: "created", Args: []Arg{Atom("tina_keane"), Str("Work")}}
	require.Equal(t, `created(tina_keane, "Work")`, f.String())
}

func TestBindingCloneIsIndependent(t *testing.T) {
	b := Binding{"X": "a"}
	c := b.Clone()
	c["X"] = "b"
	require.Equal(t, "a", b["X"])
	require.Equal(t, "b", c["X"])
}

func TestBindingCloneOfNil(t *testing.T) {
	var b Binding
	c := b.Clone()
	require.NotNil(t, c)
	require.Empty(t, c)
}
