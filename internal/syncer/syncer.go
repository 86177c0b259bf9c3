// Package syncer keeps the local copy of the remote catalog database fresh
// using conditional fetches: an ETag/size probe decides whether a transfer is
// needed at all, and the download path streams into a temp file that
// atomically replaces the destination. The destination is always either the
// previous complete copy or the new complete copy.
package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fontpeek/fontpeek/internal/entities"
)

// ErrSyncInProgress rejects a sync attempt while another one is running.
// Concurrent attempts are rejected, not queued.
var ErrSyncInProgress = errors.New("catalog sync already in progress")

// MetaStore is the slice of the key-value store the syncer needs.
type MetaStore interface {
	GetSyncMeta() (*entities.SyncMeta, error)
	SetSyncMeta(etag, sha256 string, size int64) error
}

// Result describes the outcome of one sync attempt.
type Result struct {
	Updated         bool
	Reason          string
	BytesDownloaded int64
	SHA256          string
	RemoteETag      string
	RemoteSize      int64 // -1 when unknown
}

// Service synchronizes the local catalog database with the remote copy.
type Service struct {
	meta       MetaStore
	remoteURL  string
	httpClient *http.Client

	mu       sync.Mutex
	inFlight bool
}

// New creates a sync service against remoteURL.
func New(meta MetaStore, remoteURL string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		meta:       meta,
		remoteURL:  remoteURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SyncIfNeeded decides whether the local database at localPath must be
// replaced and performs the transfer when it must. The progress callback may
// be nil.
func (s *Service) SyncIfNeeded(ctx context.Context, localPath string, progress func(msg string)) (*Result, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	report(progress, "Checking remote catalog database…")

	meta, err := s.meta.GetSyncMeta()
	if err != nil {
		return nil, err
	}

	// Best-effort metadata probe; a failed probe is not fatal.
	remoteETag, remoteSize := s.probe(ctx)

	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		// The file is gone; any stored metadata is stale. Fetch
		// unconditionally so a 304 can never leave us with no database.
		report(progress, "No local catalog database. Downloading…")
		return s.downloadAndReplace(ctx, localPath, nil, remoteETag, remoteSize, progress)
	}

	if remoteETag != "" && meta != nil && meta.ETag == remoteETag {
		return &Result{
			Updated:    false,
			Reason:     "ETag unchanged",
			RemoteETag: remoteETag,
			RemoteSize: remoteSize,
		}, nil
	}

	if remoteETag == "" && meta != nil && remoteSize > 0 && meta.Size > 0 && meta.Size != remoteSize {
		report(progress, "Remote size changed. Downloading…")
		return s.downloadAndReplace(ctx, localPath, meta, remoteETag, remoteSize, progress)
	}

	if remoteETag == "" && meta == nil {
		report(progress, "No local sync metadata. Downloading…")
		return s.downloadAndReplace(ctx, localPath, meta, remoteETag, remoteSize, progress)
	}

	// No strong signal either way; fetch conditionally and let the server's
	// 304 decide.
	report(progress, "Downloading to verify changes…")
	return s.downloadAndReplace(ctx, localPath, meta, remoteETag, remoteSize, progress)
}

func (s *Service) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSyncInProgress
	}
	s.inFlight = true
	return nil
}

func (s *Service) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// probe issues a HEAD request and returns the remote ETag and size, with
// ("", -1) on any failure.
func (s *Service) probe(ctx context.Context) (string, int64) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.remoteURL, nil)
	if err != nil {
		return "", -1
	}
	setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", -1
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", -1
	}

	size := int64(-1)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = n
		}
	}
	return resp.Header.Get("ETag"), size
}

func (s *Service) downloadAndReplace(ctx context.Context, localPath string, meta *entities.SyncMeta, remoteETag string, remoteSize int64, progress func(string)) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	setHeaders(req)
	if meta != nil && meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch remote catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		result := &Result{Updated: false, Reason: "server returned 304", RemoteSize: remoteSize}
		if meta != nil {
			result.RemoteETag = meta.ETag
			result.RemoteSize = meta.Size
		}
		return result, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch remote catalog: status %d", resp.StatusCode)
	}

	report(progress, "Downloading catalog database…")

	// Temp file in the destination directory so the final rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".catalog-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath) // best effort, ignore failure
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("stream remote catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("finish temp file: %w", err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))

	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("install catalog database: %w", err)
	}

	newETag := resp.Header.Get("ETag")
	if newETag == "" {
		newETag = remoteETag
	}
	newSize := written
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			newSize = n
		}
	}

	if err := s.meta.SetSyncMeta(newETag, sum, newSize); err != nil {
		return nil, fmt.Errorf("persist sync meta: %w", err)
	}

	report(progress, fmt.Sprintf("Catalog updated: %d bytes, sha256 %.12s…", written, sum))

	return &Result{
		Updated:         true,
		Reason:          "downloaded and installed",
		BytesDownloaded: written,
		SHA256:          sum,
		RemoteETag:      newETag,
		RemoteSize:      newSize,
	}, nil
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "fontpeek/1.0")
	req.Header.Set("Accept", "*/*")
}

func report(progress func(string), msg string) {
	if progress != nil {
		progress(msg)
	}
}
