package services

import (
	"encoding/json"
	"fmt"
	"os"
)

// Built-in display modes. Video assets from the manifest extend this set
// with one mode per asset id.
const (
	ModeNotStarted = "not_started"
	ModeDefault    = "default"
	ModeResults    = "results"
	ModeSinging    = "singing"
)

// VideoAsset is one entry of the result-screen video manifest. Its ID
// doubles as a display mode; its Src is what the display client preloads.
type VideoAsset struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Src         string `json:"src"`
	Description string `json:"description,omitempty"`
}

// DefaultManifest mirrors the clips shipped with the result screen.
func DefaultManifest() []VideoAsset {
	return []VideoAsset{
		{
			ID:          "video_performance",
			Label:       "Performance Recap",
			Src:         "/videos/intro3.mp4",
			Description: "Recap of the three characters before revealing results.",
		},
	}
}

// LoadManifest reads a JSON video manifest from path. An empty path returns
// the default manifest.
func LoadManifest(path string) ([]VideoAsset, error) {
	if path == "" {
		return DefaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read video manifest: %w", err)
	}
	var assets []VideoAsset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("parse video manifest %s: %w", path, err)
	}
	return assets, nil
}

// knownModes builds the advisory set of recognized display modes.
func knownModes(assets []VideoAsset) map[string]bool {
	modes := map[string]bool{
		ModeNotStarted: true,
		ModeDefault:    true,
		ModeResults:    true,
		ModeSinging:    true,
	}
	for _, asset := range assets {
		modes[asset.ID] = true
	}
	return modes
}
