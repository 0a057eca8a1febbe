package symsrv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDesc = artifact.Descriptor{Name: "valid.pdb", Version: "1A2B3C4D5E6F70819293A4B5C6D7E8F91"}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		ServerURL: server.URL + "/",
		UserAgent: "test-agent/1.0",
		Timeout:   5 * time.Second,
	}, mocks.NewQuietObservability())
	require.NoError(t, err)
	return client, server
}

func TestFetchPDB_Success(t *testing.T) {
	var gotPath, gotAgent string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.UserAgent()
		w.Write([]byte("MSF bytes"))
	})
	dir := t.TempDir()

	pdb, err := client.FetchPDB(context.Background(), testDesc, dir)

	require.NoError(t, err)
	assert.Equal(t, "/valid.pdb/1A2B3C4D5E6F70819293A4B5C6D7E8F91/valid.pdb", gotPath)
	assert.Equal(t, "test-agent/1.0", gotAgent)
	assert.Equal(t, filepath.Join(dir, "valid.pdb"), pdb.Path)
	assert.Equal(t, int64(9), pdb.Size)

	content, err := os.ReadFile(pdb.Path)
	require.NoError(t, err)
	assert.Equal(t, "MSF bytes", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file may be left behind")
}

func TestFetchPDB_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	dir := t.TempDir()

	pdb, err := client.FetchPDB(context.Background(), testDesc, dir)

	assert.Nil(t, pdb)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
	assert.NoFileExists(t, filepath.Join(dir, "valid.pdb"))
}

func TestFetchPDB_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchPDB(context.Background(), testDesc, t.TempDir())

	assert.ErrorIs(t, err, artifact.ErrTransport)
	assert.NotErrorIs(t, err, artifact.ErrNotFound)
}

func TestFetchPDB_Unreachable(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.FetchPDB(context.Background(), testDesc, t.TempDir())

	assert.ErrorIs(t, err, artifact.ErrTransport)
}

func TestDownloadFile(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.cs" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("class Program {}"))
	})
	dest := filepath.Join(t.TempDir(), "nested", "dir", "Program.cs")

	require.NoError(t, client.DownloadFile(context.Background(), server.URL+"/Program.cs", dest))
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "class Program {}", string(content))

	err = client.DownloadFile(context.Background(), server.URL+"/missing.cs", filepath.Join(t.TempDir(), "missing.cs"))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetchText(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/eula" {
			w.Write([]byte("You must agree."))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	text, err := client.FetchText(context.Background(), server.URL+"/eula")
	require.NoError(t, err)
	assert.Equal(t, "You must agree.", text)

	_, err = client.FetchText(context.Background(), server.URL+"/other")
	assert.Error(t, err)
}

func TestNewClient_RequiresServer(t *testing.T) {
	_, err := NewClient(Options{}, mocks.NewQuietObservability())
	assert.Error(t, err)
}
