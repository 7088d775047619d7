package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-sentinel/detection"
	"go-sentinel/logging"
	"go-sentinel/types"
)

const (
	postsCollection    = "posts"
	alertsCollection   = "alerts"
	keywordsCollection = "keywords"
)

// Firestore is the production store.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// SavePost writes a post keyed by the hash of its id. Re-ingesting the same
// id overwrites with identical data, so ingestion stays idempotent.
func (s *Firestore) SavePost(ctx context.Context, post types.Post) error {
	docID := HashString(post.ID)
	if _, err := s.client.Collection(postsCollection).Doc(docID).Set(ctx, post); err != nil {
		return fmt.Errorf("saving post %s: %w", post.ID, err)
	}
	return nil
}

func (s *Firestore) GetPost(ctx context.Context, id string) (types.Post, error) {
	var post types.Post
	doc, err := s.client.Collection(postsCollection).Doc(HashString(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return post, ErrPostNotFound
		}
		return post, fmt.Errorf("getting post %s: %w", id, err)
	}
	if err := doc.DataTo(&post); err != nil {
		return post, fmt.Errorf("decoding post %s: %w", id, err)
	}
	return post, nil
}

func (s *Firestore) ListPosts(ctx context.Context, limit int) ([]types.Post, error) {
	q := s.client.Collection(postsCollection).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)
	return s.collectPosts(ctx, q.Documents(ctx))
}

func (s *Firestore) RecentPosts(ctx context.Context, since time.Time) ([]types.Post, error) {
	q := s.client.Collection(postsCollection).
		Where("createdAt", ">=", since)
	return s.collectPosts(ctx, q.Documents(ctx))
}

func (s *Firestore) PostsWithHashtag(ctx context.Context, tag string, limit int) ([]types.Post, error) {
	q := s.client.Collection(postsCollection).
		Where("hashtags", "array-contains", tag).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)
	return s.collectPosts(ctx, q.Documents(ctx))
}

func (s *Firestore) collectPosts(ctx context.Context, iter *firestore.DocumentIterator) ([]types.Post, error) {
	defer iter.Stop()

	var posts []types.Post
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating posts: %w", err)
		}

		var post types.Post
		if err := doc.DataTo(&post); err != nil {
			logging.Warn().Err(err).Str("doc", doc.Ref.ID).Msg("skipping undecodable post")
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// SaveAlerts appends alerts in one batch using BulkWriter.
func (s *Firestore) SaveAlerts(ctx context.Context, alerts []types.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	collection := s.client.Collection(alertsCollection)

	enqueued := 0
	for i := range alerts {
		alert := alerts[i]
		if alert.ID == "" {
			logging.Warn().Str("name", alert.Name).Msg("skipping alert with empty id")
			continue
		}
		if _, err := bw.Set(collection.Doc(alert.ID), alert); err != nil {
			return fmt.Errorf("enqueueing alert %s: %w", alert.ID, err)
		}
		enqueued++
	}

	bw.Flush()
	logging.Info().Int("alerts", enqueued).Msg("alert batch flushed")
	return nil
}

func (s *Firestore) GetAlert(ctx context.Context, id string) (types.Alert, error) {
	var alert types.Alert
	doc, err := s.client.Collection(alertsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return alert, detection.ErrAlertNotFound
		}
		return alert, fmt.Errorf("getting alert %s: %w", id, err)
	}
	if err := doc.DataTo(&alert); err != nil {
		return alert, fmt.Errorf("decoding alert %s: %w", id, err)
	}
	return alert, nil
}

func (s *Firestore) ListAlerts(ctx context.Context) ([]types.Alert, error) {
	iter := s.client.Collection(alertsCollection).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var alerts []types.Alert
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating alerts: %w", err)
		}

		var alert types.Alert
		if err := doc.DataTo(&alert); err != nil {
			logging.Warn().Err(err).Str("doc", doc.Ref.ID).Msg("skipping undecodable alert")
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// SaveKeyword creates a lexicon entry, rejecting duplicate terms.
func (s *Firestore) SaveKeyword(ctx context.Context, kw types.Keyword) error {
	existing, err := s.client.Collection(keywordsCollection).
		Where("term", "==", kw.Term).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return fmt.Errorf("checking keyword term %q: %w", kw.Term, err)
	}
	if len(existing) > 0 {
		return ErrKeywordExists
	}

	if _, err := s.client.Collection(keywordsCollection).Doc(kw.ID).Set(ctx, kw); err != nil {
		return fmt.Errorf("saving keyword %q: %w", kw.Term, err)
	}
	return nil
}

func (s *Firestore) ListKeywords(ctx context.Context, query string) ([]types.Keyword, error) {
	iter := s.client.Collection(keywordsCollection).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var keywords []types.Keyword
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating keywords: %w", err)
		}

		var kw types.Keyword
		if err := doc.DataTo(&kw); err != nil {
			continue
		}
		// Firestore has no substring queries; filter client-side.
		if query != "" && !strings.Contains(strings.ToLower(kw.Term), strings.ToLower(query)) {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords, nil
}

func (s *Firestore) DeleteKeyword(ctx context.Context, id string) error {
	doc := s.client.Collection(keywordsCollection).Doc(id)
	if _, err := doc.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrKeywordNotFound
		}
		return fmt.Errorf("getting keyword %s: %w", id, err)
	}
	if _, err := doc.Delete(ctx); err != nil {
		return fmt.Errorf("deleting keyword %s: %w", id, err)
	}
	return nil
}
