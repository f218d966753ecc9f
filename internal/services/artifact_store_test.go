package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStore_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp4" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("video"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	store := NewArtifactStore(dir, srv.Client())

	name, err := store.Download(context.Background(), srv.URL+"/v.mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "sora_"))
	content, err := os.ReadFile(store.Path(name))
	require.NoError(t, err)
	assert.Equal(t, "video", string(content))

	_, err = store.Download(context.Background(), srv.URL+"/missing.mp4")
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed downloads leave no files behind")

	require.NoError(t, store.Remove(name))
	_, err = os.Stat(store.Path(name))
	assert.True(t, os.IsNotExist(err))
}
