package detection

import (
	"context"
	"errors"
	"time"

	"go-sentinel/types"
)

// ErrAlertNotFound is returned when an alert id does not exist in the store.
var ErrAlertNotFound = errors.New("alert not found")

// PostStore is the persistence contract the engine runs against. The db
// package provides Firestore and SQLite implementations; tests use an
// in-memory one.
type PostStore interface {
	// RecentPosts returns all posts created at or after since.
	RecentPosts(ctx context.Context, since time.Time) ([]types.Post, error)

	// PostsWithHashtag returns up to limit posts whose hashtag list contains
	// tag, newest first.
	PostsWithHashtag(ctx context.Context, tag string, limit int) ([]types.Post, error)

	// SaveAlerts appends the emitted alerts in one batch.
	SaveAlerts(ctx context.Context, alerts []types.Alert) error

	// GetAlert returns ErrAlertNotFound when no alert has the given id.
	GetAlert(ctx context.Context, id string) (types.Alert, error)
}

// Embedder maps texts to unit-normalized vectors, so the dot product of two
// outputs approximates their cosine similarity. An empty input yields an
// empty output. A short or failed result degrades the coordination and bot
// scores to zero; it never fails an evaluation pass.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
