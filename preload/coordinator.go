// Package preload downloads the result-screen video assets ahead of time so
// the display never streams a clip live. Assets are fetched strictly one at
// a time; aggregate readiness is reported after every status change.
package preload

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChristophStock/tvteam-ted/models"
	"github.com/ChristophStock/tvteam-ted/services"
)

const (
	StatusIdle    = "idle"
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusError   = "error"
)

const chunkSize = 32 * 1024

type assetState struct {
	status   string
	progress float64
	err      string
	path     string
}

// Coordinator drives the sequential download queue. Configure the exported
// fields before calling Run; zero values fall back to sane defaults.
type Coordinator struct {
	Assets []services.VideoAsset
	// BaseURL resolves relative asset sources like /videos/intro3.mp4.
	BaseURL string
	// CacheDir receives the downloaded files. Defaults to a temp dir.
	CacheDir string
	// RetryDelay is the pause before the whole queue restarts after any
	// asset failed. Defaults to 5 seconds.
	RetryDelay time.Duration
	Client     *http.Client
	// OnStatus receives the aggregate snapshot after every status change.
	OnStatus func(models.VideoCacheStatus)

	mu            sync.Mutex
	states        []assetState
	queueFinished bool
}

func NewCoordinator(assets []services.VideoAsset) *Coordinator {
	return &Coordinator{
		Assets:     assets,
		RetryDelay: 5 * time.Second,
		Client:     http.DefaultClient,
	}
}

// Run processes the queue until every asset is ready or ctx is cancelled.
// Any failure lets the queue finish, then after RetryDelay every cached file
// is released and the whole queue restarts from scratch.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.CacheDir == "" {
		dir, err := os.MkdirTemp("", "video-cache-")
		if err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
		c.CacheDir = dir
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}

	c.resetStates()
	for {
		c.runQueue(ctx)
		if ctx.Err() != nil {
			c.releaseAll()
			return ctx.Err()
		}
		if c.allReady() {
			log.Printf("All %d video assets cached", len(c.Assets))
			return nil
		}
		log.Printf("Video cache queue had failures, restarting in %s", c.RetryDelay)
		select {
		case <-ctx.Done():
			c.releaseAll()
			return ctx.Err()
		case <-time.After(c.RetryDelay):
		}
		c.releaseAll()
		c.resetStates()
	}
}

// CachedPath returns the local file for a ready asset, or "" if the asset is
// not (or no longer) cached.
func (c *Coordinator) CachedPath(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, asset := range c.Assets {
		if asset.ID == id && c.states[i].status == StatusReady {
			return c.states[i].path
		}
	}
	return ""
}

func (c *Coordinator) runQueue(ctx context.Context) {
	for i := range c.Assets {
		if ctx.Err() != nil {
			return
		}
		c.downloadAsset(ctx, i)
	}
	c.mu.Lock()
	c.queueFinished = true
	c.mu.Unlock()
	c.publish()
}

func (c *Coordinator) downloadAsset(ctx context.Context, index int) {
	asset := c.Assets[index]
	c.setState(index, func(s *assetState) {
		s.status = StatusLoading
		s.progress = 0
		s.err = ""
	})

	path, err := c.fetch(ctx, index, asset)
	if err != nil {
		log.Printf("Caching %s failed: %v", asset.ID, err)
		c.setState(index, func(s *assetState) {
			s.status = StatusError
			s.err = err.Error()
		})
		return
	}

	log.Printf("Cached %s at %s", asset.ID, path)
	c.setState(index, func(s *assetState) {
		s.status = StatusReady
		s.progress = 1
		s.path = path
	})
}

// fetch streams one asset to disk, updating progress chunk by chunk. The
// partial file is removed on every failure path, including cancellation.
func (c *Coordinator) fetch(ctx context.Context, index int, asset services.VideoAsset) (string, error) {
	src, err := c.resolve(asset.Src)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", asset.ID, err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", asset.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status %s", asset.ID, resp.Status)
	}

	file, err := os.CreateTemp(c.CacheDir, asset.ID+"-*.part")
	if err != nil {
		return "", fmt.Errorf("create cache file for %s: %w", asset.ID, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(file.Name())
	}

	total := resp.ContentLength
	var received int64
	lastPercent := -1
	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				cleanup()
				return "", fmt.Errorf("write %s: %w", asset.ID, err)
			}
			received += int64(n)
			if total > 0 {
				progress := float64(received) / float64(total)
				c.mu.Lock()
				c.states[index].progress = progress
				c.mu.Unlock()
				if percent := int(progress * 100); percent != lastPercent {
					lastPercent = percent
					c.publish()
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cleanup()
			return "", fmt.Errorf("read %s: %w", asset.ID, readErr)
		}
	}

	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close cache file for %s: %w", asset.ID, err)
	}
	final := filepath.Join(c.CacheDir, asset.ID+filepath.Ext(asset.Src))
	if err := os.Rename(file.Name(), final); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("finalize cache file for %s: %w", asset.ID, err)
	}
	return final, nil
}

func (c *Coordinator) resolve(src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse asset source %q: %w", src, err)
	}
	if u.IsAbs() {
		return src, nil
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", c.BaseURL, err)
	}
	return base.ResolveReference(u).String(), nil
}

func (c *Coordinator) resetStates() {
	c.mu.Lock()
	c.states = make([]assetState, len(c.Assets))
	for i := range c.states {
		c.states[i].status = StatusIdle
	}
	c.queueFinished = false
	c.mu.Unlock()
	c.publish()
}

// releaseAll removes every cached file. Called on restart and teardown so no
// partial cache outlives the queue that built it.
func (c *Coordinator) releaseAll() {
	c.mu.Lock()
	for i := range c.states {
		if c.states[i].path != "" {
			os.Remove(c.states[i].path)
			c.states[i].path = ""
		}
	}
	c.mu.Unlock()
}

func (c *Coordinator) setState(index int, update func(*assetState)) {
	c.mu.Lock()
	update(&c.states[index])
	c.mu.Unlock()
	c.publish()
}

func (c *Coordinator) allReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.states {
		if s.status != StatusReady {
			return false
		}
	}
	return len(c.states) > 0
}

// Snapshot builds the aggregate readiness report.
func (c *Coordinator) Snapshot() models.VideoCacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := models.VideoCacheStatus{
		Total:         len(c.Assets),
		QueueFinished: c.queueFinished,
		Timestamp:     time.Now().UTC(),
	}
	for i, asset := range c.Assets {
		s := c.states[i]
		if s.status == StatusReady {
			status.ReadyCount++
		}
		status.Details = append(status.Details, models.AssetCacheStatus{
			ID:       asset.ID,
			Status:   s.status,
			Progress: s.progress,
			Error:    s.err,
		})
	}
	status.AllReady = status.Total > 0 && status.ReadyCount == status.Total
	return status
}

func (c *Coordinator) publish() {
	if c.OnStatus == nil {
		return
	}
	c.OnStatus(c.Snapshot())
}
