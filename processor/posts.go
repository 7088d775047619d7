// Package processor runs the ingest pipeline: annotate an incoming post,
// persist it, and mirror it to the graph store without blocking.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	language "cloud.google.com/go/language/apiv2"

	"go-sentinel/graph"
	"go-sentinel/logging"
	"go-sentinel/nlp"
	"go-sentinel/types"
)

// Store is what the pipeline needs from persistence.
type Store interface {
	SavePost(ctx context.Context, post types.Post) error
	GetPost(ctx context.Context, id string) (types.Post, error)
}

// Result reports the outcome of ingesting one post.
type Result struct {
	PostID        string           `json:"postId"`
	Content       string           `json:"content"`
	Annotation    types.Annotation `json:"annotation"`
	AlreadyExists bool             `json:"alreadyExists"`
	ErrorSaving   bool             `json:"errorSaving"`
}

// ProcessPost annotates and persists one post, reporting whether the id was
// already ingested. Posts are immutable once ingested: a known id returns
// the stored record untouched. The graph mirror runs fire-and-forget after
// a successful save.
func ProcessPost(ctx context.Context, store Store, nlpClient *language.Client, mirror *graph.Mirror, post types.Post) (types.Post, bool, error) {
	if post.ID == "" {
		return post, false, fmt.Errorf("post has no id")
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	existing, err := store.GetPost(ctx, post.ID)
	if err == nil {
		logging.Debug().Str("post", post.ID).Msg("post already ingested")
		return existing, true, nil
	}

	annotation := nlp.AnalyzePost(ctx, nlpClient, post.Text)
	post.Language = annotation.Language
	post.Toxicity = annotation.Toxicity
	post.Stance = annotation.Stance

	if err := store.SavePost(ctx, post); err != nil {
		return post, false, fmt.Errorf("persisting post %s: %w", post.ID, err)
	}

	go mirror.UpsertPost(post)

	return post, false, nil
}

// ProcessFeed ingests a Bluesky feed page, fanning the entries out across
// goroutines and collecting per-post results.
func ProcessFeed(ctx context.Context, store Store, nlpClient *language.Client, mirror *graph.Mirror, feed types.FeedResponse) []Result {
	resultsChan := make(chan Result, len(feed.Feed))
	var wg sync.WaitGroup

	for _, entry := range feed.Feed {
		if entry.Post.URI == "" {
			continue
		}
		wg.Add(1)
		feedItem := entry
		go func() {
			defer wg.Done()

			post := PostFromFeedEntry(feedItem)
			saved, existed, err := ProcessPost(ctx, store, nlpClient, mirror, post)
			result := Result{
				PostID:  post.ID,
				Content: post.Text,
			}
			if err != nil {
				logging.Warn().Err(err).Str("post", post.ID).Msg("feed entry failed to ingest")
				result.ErrorSaving = true
			} else {
				result.AlreadyExists = existed
				result.Annotation = types.Annotation{
					Language: saved.Language,
					Toxicity: saved.Toxicity,
					Stance:   saved.Stance,
				}
			}
			resultsChan <- result
		}()
	}

	wg.Wait()
	close(resultsChan)

	results := make([]Result, 0, len(feed.Feed))
	for result := range resultsChan {
		results = append(results, result)
	}
	return results
}

// PostFromFeedEntry maps a Bluesky feed entry onto the ingestion record.
// Hashtags come from richtext tag facets in post order, so the first facet
// tag becomes the grouping key.
func PostFromFeedEntry(entry types.FeedEntry) types.Post {
	record := entry.Post.Record

	var hashtags []string
	var mentions []string
	for _, facet := range record.Facets {
		for _, feature := range facet.Features {
			switch feature.Type {
			case "app.bsky.richtext.facet#tag":
				if feature.Tag != "" {
					hashtags = append(hashtags, feature.Tag)
				}
			case "app.bsky.richtext.facet#mention":
				if feature.DID != "" {
					mentions = append(mentions, feature.DID)
				}
			}
		}
	}

	return types.Post{
		ID:           entry.Post.URI,
		Platform:     "bluesky",
		AuthorID:     entry.Post.Author.DID,
		AuthorHandle: entry.Post.Author.Handle,
		Text:         record.Text,
		Hashtags:     hashtags,
		Mentions:     mentions,
		Meta: map[string]interface{}{
			"likes":   entry.Post.LikeCount,
			"reposts": entry.Post.RepostCount,
			"replies": entry.Post.ReplyCount,
		},
		CreatedAt: parseFeedTime(record.CreatedAt),
	}
}

// parseFeedTime parses feed timestamps, tolerating records without
// fractional seconds. A zero time is returned for unparseable input and
// replaced with the ingest time by ProcessPost.
func parseFeedTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", raw); err == nil {
		return t.UTC()
	}
	logging.Warn().Str("timestamp", raw).Msg("could not parse feed timestamp")
	return time.Time{}
}
