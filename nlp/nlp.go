// Package nlp annotates post text with language, toxicity and stance before
// it reaches the store. The Cloud Natural Language client is process-wide
// state with lazy initialization; when it is unavailable the package falls
// back to deterministic placeholder classifiers so ingestion never blocks
// on a model.
package nlp

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"

	language "cloud.google.com/go/language/apiv2"
	"cloud.google.com/go/language/apiv2/languagepb"
	"google.golang.org/api/option"

	"go-sentinel/logging"
	"go-sentinel/types"
)

// languageClient is a singleton client instance.
var (
	languageClient *language.Client
	clientOnce     sync.Once
)

// InitLanguageClient initializes and returns the Natural Language client
// from the base64-encoded NATURAL_LANGUAGE_CREDENTIALS. Returns nil without
// error when no credentials are configured; callers then get the fallback
// classifiers.
func InitLanguageClient() (*language.Client, error) {
	var initErr error

	clientOnce.Do(func() {
		encodedCreds := os.Getenv("NATURAL_LANGUAGE_CREDENTIALS")
		if encodedCreds == "" {
			logging.Warn().Msg("NATURAL_LANGUAGE_CREDENTIALS not set, using fallback classifiers")
			return
		}

		creds, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			initErr = fmt.Errorf("decoding Natural Language credentials: %w", err)
			return
		}

		opt := option.WithCredentialsJSON(creds)
		languageClient, err = language.NewClient(context.Background(), opt)
		if err != nil {
			initErr = fmt.Errorf("creating Natural Language client: %w", err)
		}
	})

	return languageClient, initErr
}

// CloseLanguageClient closes the singleton client.
func CloseLanguageClient() {
	if languageClient != nil {
		languageClient.Close()
	}
}

var defaultAntiMarkers = []string{"boycott", "down with", "shame on", "destroy"}
var defaultProMarkers = []string{"support", "stand with", "proud of", "jai"}

// markersFromEnv reads a comma-separated marker list, falling back to the
// built-in defaults.
func markersFromEnv(key string, defaults []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaults
	}
	var markers []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, strings.ToLower(m))
		}
	}
	if len(markers) == 0 {
		return defaults
	}
	return markers
}

// ClassifyStance labels text pro, anti or neutral by marker phrases.
// Markers come from STANCE_ANTI_MARKERS / STANCE_PRO_MARKERS when set.
func ClassifyStance(text string) types.Stance {
	lower := strings.ToLower(text)
	for _, m := range markersFromEnv("STANCE_ANTI_MARKERS", defaultAntiMarkers) {
		if strings.Contains(lower, m) {
			return types.StanceAnti
		}
	}
	for _, m := range markersFromEnv("STANCE_PRO_MARKERS", defaultProMarkers) {
		if strings.Contains(lower, m) {
			return types.StancePro
		}
	}
	return types.StanceNeutral
}

// fallbackToxicity is a deterministic placeholder score derived from the
// text hash, in [0, 1).
func fallbackToxicity(text string) float64 {
	digest := sha256.Sum256([]byte(text))
	h := binary.BigEndian.Uint64(digest[:8])
	return float64(h%100) / 100.0
}

// AnalyzePost annotates text with language, toxicity and stance. With a nil
// client every field comes from the deterministic fallbacks. Classifier
// failures degrade the affected field only.
func AnalyzePost(ctx context.Context, client *language.Client, text string) types.Annotation {
	annotation := types.Annotation{
		Language: "und",
		Toxicity: fallbackToxicity(text),
		Stance:   ClassifyStance(text),
	}
	if client == nil {
		return annotation
	}

	doc := &languagepb.Document{
		Source: &languagepb.Document_Content{
			Content: text,
		},
		Type: languagepb.Document_PLAIN_TEXT,
	}

	// Toxicity and language come from separate API calls; run them together
	// the way the ingest pipeline always has.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		resp, err := client.ModerateText(ctx, &languagepb.ModerateTextRequest{Document: doc})
		if err != nil {
			logging.Warn().Err(err).Msg("ModerateText failed, keeping fallback toxicity")
			return
		}
		for _, cat := range resp.ModerationCategories {
			if cat.Name == "Toxic" {
				annotation.Toxicity = float64(cat.Confidence)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		resp, err := client.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
			Document:     doc,
			EncodingType: languagepb.EncodingType_UTF8,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("AnalyzeSentiment failed, keeping fallback language")
			return
		}
		if resp.LanguageCode != "" {
			annotation.Language = resp.LanguageCode
		}
	}()

	wg.Wait()
	return annotation
}
