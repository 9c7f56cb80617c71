package compile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jptmoore/beingdb/encode"
	"github.com/jptmoore/beingdb/pack"
)

func writeSourceFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestRunCompilesCleanPredicates(t *testing.T) {
	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")

	writeSourceFile(t, sourceDir, "created.pl", `created(tina_keane, faded_wallpaper).
created(tina_keane, north_south_east_west).
% a comment
created(other_artist, some_work).
`)
	writeSourceFile(t, sourceDir, "titled.pl", `titled(faded_wallpaper, "Faded Wallpaper").
titled(some_work, "Some Work").
`)

	report, err := Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 2, report.PredicatesProcessed)
	require.Equal(t, int64(5), report.FactsWritten)

	store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	defer store.Close()

	var createdArgs [][]string
	err = store.List("created", func(e pack.Entry) error {
		var row []string
		for _, a := range encode.Decode(e.PathArgs, e.Blob) {
			row = append(row, a.Text)
		}
		createdArgs = append(createdArgs, row)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, createdArgs, 3)
}

func TestRunRejectsArityMismatch(t *testing.T) {
	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")

	writeSourceFile(t, sourceDir, "bad.pl", `bad(a).
bad(a, b).
bad(a, b, c).
`)

	report, err := Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Len(t, report.Failed, 1)
	require.Equal(t, "bad", report.Failed[0].Name)
	require.ElementsMatch(t, []int{1, 2, 3}, report.Failed[0].Arities)
	require.Equal(t, int64(0), report.FactsWritten)

	store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	defer store.Close()

	infos, err := store.Predicates()
	require.NoError(t, err)
	require.Empty(t, infos)
}

func TestRunIgnoresSubdirectories(t *testing.T) {
	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")

	writeSourceFile(t, sourceDir, "ok.pl", "ok(a).\n")
	require.NoError(t, os.Mkdir(filepath.Join(sourceDir, "nested"), 0o755))
	writeSourceFile(t, filepath.Join(sourceDir, "nested"), "ignored.pl", "ignored(x).\n")

	report, err := Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, report.PredicatesProcessed)
}

func TestRunTreatsNonPlFilesAsPredicates(t *testing.T) {
	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")

	writeSourceFile(t, sourceDir, "plain_name", "plain_name(a).\n")

	report, err := Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, report.PredicatesProcessed)
	require.True(t, report.OK())
}

func TestRunOverwritesStalePackContents(t *testing.T) {
	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")

	writeSourceFile(t, sourceDir, "p.pl", "p(a).\np(b).\n")
	_, err := Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "p.pl"), []byte("p(a).\n"), 0o644))
	report, err := Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, int64(1), report.FactsWritten)
}
