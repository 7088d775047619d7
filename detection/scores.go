package detection

import (
	"context"
	"math"
	"sort"

	"go-sentinel/types"
)

const (
	// --- Scoring Thresholds ---

	// Risk weights
	toxicityWeight = 0.5
	antiWeight     = 0.4
	volumeWeight   = 0.1
	volumeRef      = 50.0 // posts needed to saturate the volume factor

	// Burst
	referenceIntervalSecs = 3600.0 // 1-hour reference inter-arrival time
	burstScale            = 20.0
	sigmaEpsilon          = 1e-6

	// Coordination
	minCoordinationPosts = 3
	similarityMin        = 0.85
	coordWindowSecs      = 900.0 // 15 minutes

	// Bot likelihood
	minAuthorPosts  = 2
	frequencyScale  = 20.0
	repetitionScale = 80.0

	maxScore = 100.0
)

// ComputeRisk scores a batch of posts on toxicity, anti-stance ratio and
// volume. Output is in [0, 100] for toxicity inputs in [0, 1]; an empty
// batch scores 0.
func ComputeRisk(posts []types.Post) float64 {
	if len(posts) == 0 {
		return 0.0
	}

	var toxicity, anti float64
	for _, p := range posts {
		toxicity += p.Toxicity
		if p.Stance == types.StanceAnti {
			anti += 1.0
		}
	}
	n := float64(len(posts))
	meanToxicity := toxicity / n
	antiRatio := anti / n
	volume := math.Min(n/volumeRef, 1.0)

	return (toxicityWeight*meanToxicity + antiWeight*antiRatio + volumeWeight*volume) * 100.0
}

// BurstScore measures how abnormally close together the batch arrived
// relative to the 1-hour reference interval. Fewer than 2 posts scores 0.
// Holding the spread fixed, a smaller mean interval scores strictly higher
// until the 100 cap.
func BurstScore(posts []types.Post) float64 {
	if len(posts) < 2 {
		return 0.0
	}

	timestamps := make([]float64, len(posts))
	for i, p := range posts {
		timestamps[i] = float64(p.CreatedAt.UnixNano()) / 1e9
	}
	sort.Float64s(timestamps)

	intervals := make([]float64, len(timestamps)-1)
	var sum float64
	for i := 1; i < len(timestamps); i++ {
		intervals[i-1] = timestamps[i] - timestamps[i-1]
		sum += intervals[i-1]
	}
	mean := sum / float64(len(intervals))

	var variance float64
	for _, x := range intervals {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(intervals))
	sigma := math.Sqrt(variance) + sigmaEpsilon

	z := math.Max(0.0, (referenceIntervalSecs-mean)/sigma)
	return math.Min(maxScore, burstScale*z)
}

// CoordinationScore detects near-duplicate content posted within a short
// window, the signature of a copy-paste campaign. It is the fraction of
// post pairs with embedding similarity above 0.85 and timestamps within 15
// minutes, scaled to [0, 100]. Batches below 3 posts, and batches where the
// embedder returns fewer than 3 vectors or fails, score 0.
func CoordinationScore(ctx context.Context, embedder Embedder, posts []types.Post) float64 {
	if len(posts) < minCoordinationPosts {
		return 0.0
	}

	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text
	}
	emb, err := embedder.Embed(ctx, texts)
	if err != nil || len(emb) < minCoordinationPosts {
		return 0.0
	}

	n := len(emb)
	if len(posts) < n {
		n = len(posts)
	}

	times := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(posts[i].CreatedAt.UnixNano()) / 1e9
	}

	totalPairs := n * (n - 1) / 2
	coordinated := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := clampedDot(emb[i], emb[j])
			if sim > similarityMin && math.Abs(times[i]-times[j]) <= coordWindowSecs {
				coordinated++
			}
		}
	}

	frac := float64(coordinated) / float64(totalPairs)
	return math.Min(maxScore, 100.0*frac)
}

// BotLikelihood is a per-author composite of posting frequency and content
// repetitiveness, averaged over the authors that contribute at least 2
// posts to the batch. A batch where every author posts once scores 0.
func BotLikelihood(ctx context.Context, embedder Embedder, posts []types.Post) float64 {
	if len(posts) == 0 {
		return 0.0
	}

	byAuthor := make(map[string][]types.Post)
	for _, p := range posts {
		byAuthor[p.AuthorID] = append(byAuthor[p.AuthorID], p)
	}

	var authorScores []float64
	for _, authorPosts := range byAuthor {
		if len(authorPosts) < minAuthorPosts {
			continue
		}

		times := make([]float64, len(authorPosts))
		texts := make([]string, len(authorPosts))
		for i, p := range authorPosts {
			times[i] = float64(p.CreatedAt.UnixNano()) / 1e9
			texts[i] = p.Text
		}
		sort.Float64s(times)

		spanHours := (times[len(times)-1] - times[0]) / 3600.0
		freq := float64(len(authorPosts)) / math.Max(1.0, spanHours)

		repetition := 0.0
		emb, err := embedder.Embed(ctx, texts)
		if err == nil && len(emb) >= 2 {
			var simSum float64
			pairs := 0
			for i := 0; i < len(emb); i++ {
				for j := i + 1; j < len(emb); j++ {
					simSum += clampedDot(emb[i], emb[j])
					pairs++
				}
			}
			if pairs > 0 {
				repetition = simSum / float64(pairs)
			}
		}

		score := math.Min(maxScore, frequencyScale*freq+repetitionScale*repetition)
		authorScores = append(authorScores, score)
	}

	if len(authorScores) == 0 {
		return 0.0
	}
	var total float64
	for _, s := range authorScores {
		total += s
	}
	return total / float64(len(authorScores))
}

// clampedDot is the dot product of two vectors clamped to [0, 1]. Inputs
// are assumed unit-normalized, so this approximates cosine similarity.
func clampedDot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for k := 0; k < n; k++ {
		dot += a[k] * b[k]
	}
	return math.Max(0.0, math.Min(1.0, dot))
}
