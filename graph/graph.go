// Package graph mirrors ingested posts into an external graph store. The
// mirror is best effort: a failed or slow sync is logged and dropped, and
// must never block or fail ingestion.
package graph

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go-sentinel/logging"
	"go-sentinel/types"
)

// Mirror posts ingested records to the configured graph-sync endpoint.
type Mirror struct {
	endpoint string
	client   *http.Client
}

// NewMirrorFromEnv builds a mirror for GRAPH_SYNC_URL. With the variable
// unset the mirror is disabled and every upsert is a no-op.
func NewMirrorFromEnv() *Mirror {
	endpoint := os.Getenv("GRAPH_SYNC_URL")
	if endpoint == "" {
		logging.Info().Msg("GRAPH_SYNC_URL not set, graph mirroring disabled")
	}
	return &Mirror{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *Mirror) Enabled() bool {
	return m.endpoint != ""
}

// UpsertPost sends one post to the graph endpoint. Errors are logged, never
// returned; callers fire this from a goroutine and move on.
func (m *Mirror) UpsertPost(post types.Post) {
	if !m.Enabled() {
		return
	}

	payload, err := json.Marshal(post)
	if err != nil {
		logging.Warn().Err(err).Str("post", post.ID).Msg("graph mirror: encoding failed")
		return
	}

	resp, err := m.client.Post(m.endpoint, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		logging.Warn().Err(err).Str("post", post.ID).Msg("graph mirror: sync failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logging.Warn().
			Str("post", post.ID).
			Str("status", resp.Status).
			Msg("graph mirror: endpoint rejected post")
	}
}
