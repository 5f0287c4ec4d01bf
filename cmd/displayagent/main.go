// Command displayagent runs on the public display host. It preloads the
// result-screen video assets through the cache coordinator and reports the
// aggregate readiness to the voting server over the websocket hub, where the
// control console picks it up.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/ChristophStock/tvteam-ted/models"
	"github.com/ChristophStock/tvteam-ted/preload"
	"github.com/ChristophStock/tvteam-ted/services"
)

type runtimeConfig struct {
	Title  string                `json:"title"`
	Videos []services.VideoAsset `json:"videos"`
}

func main() {
	_ = godotenv.Load()

	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:4000"
	}
	cacheDir := os.Getenv("VIDEO_CACHE_DIR")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assets, err := fetchManifest(ctx, serverURL)
	if err != nil {
		log.Fatal("Failed to fetch video manifest:", err)
	}
	if len(assets) == 0 {
		log.Printf("Manifest is empty, nothing to preload")
		return
	}

	conn, err := dialHub(ctx, serverURL)
	if err != nil {
		log.Fatal("Failed to connect to hub:", err)
	}
	defer conn.Close()

	// Keep the connection draining; broadcasts addressed to the display
	// proper are handled by the page, not this agent.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	report := func(status models.VideoCacheStatus) {
		writeMu.Lock()
		defer writeMu.Unlock()
		msg := services.Message{Type: services.EventVideoCacheStatus, Payload: status}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Failed to report cache status: %v", err)
		}
	}

	coordinator := preload.NewCoordinator(assets)
	coordinator.BaseURL = serverURL
	coordinator.CacheDir = cacheDir
	coordinator.OnStatus = report

	if err := coordinator.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Printf("Shutting down, releasing video cache")
			return
		}
		log.Fatal("Video preload failed:", err)
	}

	log.Printf("Video cache ready, keeping status connection open")
	<-ctx.Done()
}

func fetchManifest(ctx context.Context, serverURL string) ([]services.VideoAsset, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, serverURL+"/api/config", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cfg runtimeConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Videos, nil
}

func dialHub(ctx context.Context, serverURL string) (*websocket.Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}
