package preload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ChristophStock/tvteam-ted/models"
	"github.com/ChristophStock/tvteam-ted/services"
)

type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots []models.VideoCacheStatus
}

func (r *snapshotRecorder) record(status models.VideoCacheStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, status)
}

func (r *snapshotRecorder) last(t *testing.T) models.VideoCacheStatus {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		t.Fatal("no snapshots recorded")
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *snapshotRecorder) find(match func(models.VideoCacheStatus) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snapshots {
		if match(s) {
			return true
		}
	}
	return false
}

func testAssets(n int) []services.VideoAsset {
	ids := []string{"video_intro", "video_performance", "video_reveal"}
	assets := make([]services.VideoAsset, n)
	for i := 0; i < n; i++ {
		assets[i] = services.VideoAsset{ID: ids[i], Label: ids[i], Src: "/videos/" + ids[i] + ".mp4"}
	}
	return assets
}

func TestCoordinatorCachesAllAssets(t *testing.T) {
	body := make([]byte, 200*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Explicit length so the client can compute progress fractions.
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}))
	defer srv.Close()

	rec := &snapshotRecorder{}
	c := NewCoordinator(testAssets(2))
	c.BaseURL = srv.URL
	c.CacheDir = t.TempDir()
	c.OnStatus = rec.record

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := rec.last(t)
	if !final.AllReady || final.ReadyCount != 2 || !final.QueueFinished {
		t.Fatalf("final aggregate = %+v, want all ready", final)
	}

	for _, asset := range c.Assets {
		path := c.CachedPath(asset.ID)
		if path == "" {
			t.Fatalf("no cached path for %s", asset.ID)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() != int64(len(body)) {
			t.Fatalf("cached %d bytes for %s, want %d", info.Size(), asset.ID, len(body))
		}
	}

	// Progress must have been reported fractionally, not just 0 and 1.
	if !rec.find(func(s models.VideoCacheStatus) bool {
		for _, d := range s.Details {
			if d.Status == StatusLoading && d.Progress > 0 && d.Progress < 1 {
				return true
			}
		}
		return false
	}) {
		t.Fatal("no intermediate progress snapshot recorded")
	}
}

func TestCoordinatorRestartsQueueAfterFailure(t *testing.T) {
	var failures atomic.Int32
	failures.Store(1) // asset 2 fails once, then recovers

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "video_performance.mp4" && failures.Add(-1) >= 0 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("clip"))
	}))
	defer srv.Close()

	rec := &snapshotRecorder{}
	c := NewCoordinator(testAssets(3))
	c.BaseURL = srv.URL
	c.CacheDir = t.TempDir()
	c.RetryDelay = 20 * time.Millisecond
	c.OnStatus = rec.record

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The first pass finishes the queue with two ready and one errored: the
	// failure must not abort the assets behind it.
	if !rec.find(func(s models.VideoCacheStatus) bool {
		return s.QueueFinished && s.ReadyCount == 2 && s.Total == 3 && !s.AllReady
	}) {
		t.Fatal("no snapshot of the partially failed first pass")
	}

	// The restart resets every asset to idle before downloading again.
	if !rec.find(func(s models.VideoCacheStatus) bool {
		if s.ReadyCount != 0 || len(s.Details) != 3 {
			return false
		}
		for _, d := range s.Details {
			if d.Status != StatusIdle {
				return false
			}
		}
		return true
	}) {
		t.Fatal("no idle-reset snapshot after the failed pass")
	}

	final := rec.last(t)
	if !final.AllReady || final.ReadyCount != 3 {
		t.Fatalf("final aggregate = %+v, want 3 ready", final)
	}
}

func TestCoordinatorCancellationReleasesResources(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(make([]byte, 32*1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewCoordinator(testAssets(1))
	c.BaseURL = srv.URL
	c.CacheDir = dir

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache dir not empty after cancellation: %v", entries)
	}
}

func TestCoordinatorResolvesAbsoluteSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clip"))
	}))
	defer srv.Close()

	c := NewCoordinator([]services.VideoAsset{{ID: "video_intro", Src: srv.URL + "/intro.mp4"}})
	c.CacheDir = t.TempDir()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.CachedPath("video_intro") == "" {
		t.Fatal("absolute source was not cached")
	}
}
