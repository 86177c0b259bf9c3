package kvstore

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *Repository {
	repo, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGetSyncMeta_EmptyStore(t *testing.T) {
	repo := setupTestRepo(t)

	meta, err := repo.GetSyncMeta()
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestSetSyncMeta_RoundTrip(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.SetSyncMeta(`"abc123"`, "deadbeef", 4096)
	require.NoError(t, err)

	meta, err := repo.GetSyncMeta()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, `"abc123"`, meta.ETag)
	assert.Equal(t, "deadbeef", meta.SHA256)
	assert.Equal(t, int64(4096), meta.Size)
	assert.False(t, meta.UpdatedAt.IsZero())
}

func TestSetSyncMeta_Overwrites(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.SetSyncMeta(`"v1"`, "aaaa", 1))
	require.NoError(t, repo.SetSyncMeta(`"v2"`, "bbbb", 2))

	meta, err := repo.GetSyncMeta()
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, meta.ETag)
	assert.Equal(t, int64(2), meta.Size)
}

func TestPreviewTokens_AbsentSlug(t *testing.T) {
	repo := setupTestRepo(t)

	tokens, err := repo.GetPreviewTokens("unknown")
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestPreviewTokens_RoundTripPreservesOrder(t *testing.T) {
	repo := setupTestRepo(t)

	want := []string{"academy0", "academy1", "academy_bold"}
	require.NoError(t, repo.SetPreviewTokens("academy", want))

	tokens, err := repo.GetPreviewTokens("academy")
	require.NoError(t, err)
	assert.Equal(t, want, tokens)
}

func TestRepository_ConcurrentAccess(t *testing.T) {
	repo := setupTestRepo(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, repo.SetSyncMeta(`"etag"`, "hash", int64(n)))
			_, err := repo.GetSyncMeta()
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
