package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jptmoore/beingdb/compile"
	"github.com/jptmoore/beingdb/engine"
	"github.com/jptmoore/beingdb/pack"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "created.pl"),
		[]byte("created(tina_keane, faded_wallpaper).\ncreated(tina_keane, north_south_east_west).\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "titled.pl"),
		[]byte(`titled(faded_wallpaper, "Faded Wallpaper").`+"\n"), 0o644))

	_, err := compile.Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)

	store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, engine.Config{})
	gate := engine.NewAdmissionGate(20)
	return New(eng, gate, Config{MaxResults: 100}, zap.NewNop())
}

func TestHandleRoot(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["name"])
}

func TestHandlePredicates(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predicates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Predicates []struct {
			Name  string `json:"name"`
			Arity int    `json:"arity"`
		} `json:"predicates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Predicates, 2)
}

func TestHandleQueryPredicateAll(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/query/created", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Predicate string     `json:"predicate"`
		Facts     [][]string `json:"facts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "created", body.Predicate)
	require.Len(t, body.Facts, 2)
}

func TestHandleQueryPostJoin(t *testing.T) {
	srv := newTestServer(t)
	reqBody := `{"query": "created(tina_keane, Work), titled(Work, Title)"}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(reqBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body resultEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.NotNil(t, body.Total)
	require.False(t, body.TotalOmitted)
	require.Equal(t, "Faded Wallpaper", body.Results[0]["Title"])
}

func TestHandleQueryPostStreamingOmitsTotal(t *testing.T) {
	srv := newTestServer(t)
	reqBody := `{"query": "created(tina_keane, Work), titled(Work, Title)", "limit": 1}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(reqBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body resultEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body.Total)
	require.True(t, body.TotalOmitted)
}

func TestHandleQueryPostInvalidSyntax(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "not a pattern"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestHandleQueryPostCartesianProductRejected(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	body := `{"query": "created(A, B), created(C, D)"}`
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryPostOverloaded(t *testing.T) {
	sourceDir := t.TempDir()
	packDir := filepath.Join(t.TempDir(), "pack")
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "p.pl"), []byte("p(a).\n"), 0o644))
	_, err := compile.Run(sourceDir, packDir, zap.NewNop())
	require.NoError(t, err)

	store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	defer store.Close()

	eng := engine.New(store, engine.Config{})
	gate := engine.NewAdmissionGate(1)
	release, err := gate.Acquire()
	require.NoError(t, err)
	defer release()

	srv := New(eng, gate, Config{MaxResults: 100}, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"p(X)"}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
