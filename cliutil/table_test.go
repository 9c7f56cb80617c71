package cliutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jptmoore/beingdb/pack"
)

func TestPredicateTableRendersNames(t *testing.T) {
	var buf bytes.Buffer
	PredicateTable(&buf, []pack.PredicateInfo{
		{Name: "created", Arity: 2, Count: 3},
		{Name: "titled", Arity: 2, Count: 0},
	})
	out := buf.String()
	require.Contains(t, out, "created")
	require.Contains(t, out, "titled")
}

func TestBindingTableRendersValues(t *testing.T) {
	var buf bytes.Buffer
	BindingTable(&buf, []string{"Work"}, []map[string]string{{"Work": "faded_wallpaper"}})
	require.Contains(t, buf.String(), "faded_wallpaper")
}
