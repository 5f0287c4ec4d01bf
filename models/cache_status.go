package models

import "time"

// AssetCacheStatus is the per-asset detail inside a video cache report.
// Status is one of idle, loading, ready, error.
type AssetCacheStatus struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// VideoCacheStatus is the aggregate readiness snapshot the display client
// reports through the hub. It is ephemeral: the hub keeps only the latest
// one in memory so late joiners can catch up.
type VideoCacheStatus struct {
	ReadyCount    int                `json:"readyCount"`
	Total         int                `json:"total"`
	AllReady      bool               `json:"allReady"`
	QueueFinished bool               `json:"queueFinished"`
	Timestamp     time.Time          `json:"timestamp"`
	Details       []AssetCacheStatus `json:"details"`
}
