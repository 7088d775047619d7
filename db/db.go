package db

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"

	"go-sentinel/types"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrKeywordNotFound = errors.New("keyword not found")
	ErrKeywordExists   = errors.New("keyword term already exists")
)

// Store is what the HTTP surface and the ingest pipeline need from a
// backing store. Both the Firestore and SQLite stores satisfy it, and both
// also satisfy the detection engine's PostStore contract.
type Store interface {
	SavePost(ctx context.Context, post types.Post) error
	GetPost(ctx context.Context, id string) (types.Post, error)
	ListPosts(ctx context.Context, limit int) ([]types.Post, error)
	RecentPosts(ctx context.Context, since time.Time) ([]types.Post, error)
	PostsWithHashtag(ctx context.Context, tag string, limit int) ([]types.Post, error)

	SaveAlerts(ctx context.Context, alerts []types.Alert) error
	GetAlert(ctx context.Context, id string) (types.Alert, error)
	ListAlerts(ctx context.Context) ([]types.Alert, error)

	SaveKeyword(ctx context.Context, kw types.Keyword) error
	ListKeywords(ctx context.Context, query string) ([]types.Keyword, error)
	DeleteKeyword(ctx context.Context, id string) error
}

// HashString hashes a given string using SHA-256 and returns its hex
// representation. Used for stable Firestore document ids.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// client is a singleton Firestore client instance.
var (
	client     *firestore.Client
	clientOnce sync.Once
)

// InitFirestore initializes and returns a Firestore client from the
// base64-encoded FIREBASE_CREDENTIALS.
func InitFirestore() (*firestore.Client, error) {
	var initErr error

	clientOnce.Do(func() {
		encodedCreds := os.Getenv("FIREBASE_CREDENTIALS")
		creds, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			initErr = fmt.Errorf("decoding Firestore credentials: %w", err)
			return
		}

		opt := option.WithCredentialsJSON(creds)
		app, err := firebase.NewApp(context.Background(), nil, opt)
		if err != nil {
			initErr = fmt.Errorf("initializing Firebase app: %w", err)
			return
		}

		client, err = app.Firestore(context.Background())
		if err != nil {
			initErr = fmt.Errorf("getting Firestore client: %w", err)
		}
	})

	return client, initErr
}

// CloseFirestore closes the Firestore client.
func CloseFirestore() {
	if client != nil {
		client.Close()
	}
}
