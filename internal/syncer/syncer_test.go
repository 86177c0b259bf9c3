package syncer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontpeek/fontpeek/internal/entities"
)

type memMetaStore struct {
	mu   sync.Mutex
	meta *entities.SyncMeta
}

func (m *memMetaStore) GetSyncMeta() (*entities.SyncMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta, nil
}

func (m *memMetaStore) SetSyncMeta(etag, sha string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = &entities.SyncMeta{ID: 1, ETag: etag, SHA256: sha, Size: size, UpdatedAt: time.Now()}
	return nil
}

// catalogServer serves a fixed payload with a stable ETag and honors
// If-None-Match with a 304.
func catalogServer(payload []byte, etag string, getCount *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		if r.Method == http.MethodHead {
			return
		}
		if getCount != nil {
			atomic.AddInt32(getCount, 1)
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write(payload)
	}))
}

func TestSyncIfNeeded_NoLocalCopyFetches(t *testing.T) {
	payload := []byte("catalog-bytes")
	server := catalogServer(payload, `"v1"`, nil)
	defer server.Close()

	store := &memMetaStore{}
	// Pre-existing metadata must not prevent the fetch when the file is gone.
	store.SetSyncMeta(`"v1"`, "stale", int64(len(payload)))

	localPath := filepath.Join(t.TempDir(), "fontes.db")
	svc := New(store, server.URL, 5*time.Second)

	result, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	require.NoError(t, err)
	assert.True(t, result.Updated)

	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	meta, err := store.GetSyncMeta()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, int64(len(payload)), meta.Size)
	assert.NotEqual(t, "stale", meta.SHA256)
}

func TestSyncIfNeeded_SecondCallNoChange(t *testing.T) {
	payload := []byte("catalog-bytes")
	var gets int32
	server := catalogServer(payload, `"stable"`, &gets)
	defer server.Close()

	store := &memMetaStore{}
	localPath := filepath.Join(t.TempDir(), "fontes.db")
	svc := New(store, server.URL, 5*time.Second)

	first, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	require.NoError(t, err)
	assert.True(t, first.Updated)
	assert.Equal(t, int64(len(payload)), first.BytesDownloaded)

	second, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	require.NoError(t, err)
	assert.False(t, second.Updated)
	assert.Zero(t, second.BytesDownloaded)
	// The ETag matched at probe time; no second GET happened at all.
	assert.Equal(t, int32(1), atomic.LoadInt32(&gets))
}

func TestSyncIfNeeded_ConditionalGet304(t *testing.T) {
	// No ETag on HEAD forces the ambiguous path; the conditional GET's 304
	// must short-circuit without a file write.
	payload := []byte("catalog-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(payload)
	}))
	defer server.Close()

	store := &memMetaStore{}
	store.SetSyncMeta(`"v1"`, "somehash", int64(len(payload)))

	localPath := filepath.Join(t.TempDir(), "fontes.db")
	require.NoError(t, os.WriteFile(localPath, payload, 0644))
	before, err := os.Stat(localPath)
	require.NoError(t, err)

	svc := New(store, server.URL, 5*time.Second)
	result, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Contains(t, result.Reason, "304")

	after, err := os.Stat(localPath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestSyncIfNeeded_FailedTransferKeepsDestination(t *testing.T) {
	original := []byte("previous complete copy")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		// Announce more bytes than are sent so the client sees a truncated body.
		w.Header().Set("Content-Length", "4096")
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, _ := w.(http.Hijacker).Hijack()
		conn.Close()
	}))
	defer server.Close()

	dir := t.TempDir()
	localPath := filepath.Join(dir, "fontes.db")
	require.NoError(t, os.WriteFile(localPath, original, 0644))

	store := &memMetaStore{}
	svc := New(store, server.URL, 5*time.Second)

	_, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	require.Error(t, err)

	// Destination is byte-identical and no temp files are left behind.
	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, original, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// No metadata was persisted for the failed attempt.
	meta, err := store.GetSyncMeta()
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestSyncIfNeeded_SizeDriftTriggersFetch(t *testing.T) {
	payload := []byte("a much longer catalog payload than before")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No ETag at all; only Content-Length signals change.
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	store := &memMetaStore{}
	store.SetSyncMeta("", "oldhash", 10)

	localPath := filepath.Join(t.TempDir(), "fontes.db")
	require.NoError(t, os.WriteFile(localPath, []byte("old"), 0644))

	svc := New(store, server.URL, 5*time.Second)
	result, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, int64(len(payload)), result.RemoteSize)
}

func TestSyncIfNeeded_RejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			<-release
		}
		w.Write([]byte("data"))
	}))
	defer server.Close()

	store := &memMetaStore{}
	localPath := filepath.Join(t.TempDir(), "fontes.db")
	svc := New(store, server.URL, 10*time.Second)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
		done <- err
	}()

	<-started
	time.Sleep(50 * time.Millisecond) // let the first sync reach the probe

	_, err := svc.SyncIfNeeded(context.Background(), localPath, nil)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}
