package pack

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "beingdb-pack-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := Open(dir, OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetAndGetExactKey(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Set("created", "10:tina_keane", []byte("blob")))

	blob, ok, err := store.Get("created", "10:tina_keane")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("blob"), blob)

	_, ok, err = store.Get("created", "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListByPredicatePrefix(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Set("created", "a", nil))
	require.NoError(t, store.Set("created", "b", nil))
	require.NoError(t, store.Set("titled", "c", nil))

	var got []string
	err := store.List("created", func(e Entry) error {
		got = append(got, e.PathArgs)
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestPredicatesReportsArityAndCount(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Set("created", "10:tina_keane:4:work", nil))
	require.NoError(t, store.Set("created", "11:another_one:4:work", nil))
	require.NoError(t, store.Set("titled", "4:work:5:Title", nil))

	infos, err := store.Predicates()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byName := make(map[string]PredicateInfo)
	for _, info := range infos {
		byName[info.Name] = info
	}
	require.Equal(t, 2, byName["created"].Arity)
	require.Equal(t, int64(2), byName["created"].Count)
	require.Equal(t, 2, byName["titled"].Arity)
}

func TestMetaIsNamespacedAwayFromFacts(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SetMeta("predicate/created.digest", []byte("abc123")))
	require.NoError(t, store.Set("created", "x", nil))

	infos, err := store.Predicates()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "created", infos[0].Name)

	value, ok, err := store.GetMeta("predicate/created.digest")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("abc123"), value)
}
