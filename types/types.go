package types

import "time"

type Stance string

const (
	StancePro     Stance = "pro"
	StanceAnti    Stance = "anti"
	StanceNeutral Stance = "neutral"
)

// UncategorizedTag is the grouping key for posts without hashtags.
const UncategorizedTag = "uncategorized"

// Post is a social-media post after annotation. Once ingested it is never
// mutated; the detection engine treats batches of posts as immutable.
type Post struct {
	ID           string                 `firestore:"id" json:"id"`
	Platform     string                 `firestore:"platform" json:"platform"`
	AuthorID     string                 `firestore:"authorId" json:"author_id"`
	AuthorHandle string                 `firestore:"authorHandle" json:"author_handle"`
	Text         string                 `firestore:"text" json:"text"`
	Language     string                 `firestore:"language" json:"language"`
	Toxicity     float64                `firestore:"toxicity" json:"toxicity"`
	Stance       Stance                 `firestore:"stance" json:"stance"`
	Hashtags     []string               `firestore:"hashtags" json:"hashtags"`
	Mentions     []string               `firestore:"mentions" json:"mentions"`
	Meta         map[string]interface{} `firestore:"meta" json:"meta"`
	CreatedAt    time.Time              `firestore:"createdAt" json:"created_at"`
}

// PrimaryHashtag returns the first hashtag, or UncategorizedTag when the
// post carries none. Hashtag order is significant: the first entry is the
// tag the post is grouped under.
func (p Post) PrimaryHashtag() string {
	if len(p.Hashtags) == 0 || p.Hashtags[0] == "" {
		return UncategorizedTag
	}
	return p.Hashtags[0]
}

// AlertScores holds the four sub-scores that were fused into an alert.
type AlertScores struct {
	Risk         float64 `firestore:"risk" json:"risk"`
	Burst        float64 `firestore:"burst" json:"burst"`
	Coordination float64 `firestore:"coordination" json:"coordination"`
	Bot          float64 `firestore:"bot" json:"bot"`
}

// AlertDetails is the structured evidence payload stored with an alert.
// Hashtag is the grouping key the alert was emitted for; campaign
// reconstruction keys on it later.
type AlertDetails struct {
	Hashtag string      `firestore:"hashtag" json:"hashtag"`
	Count   int         `firestore:"count" json:"count"`
	Scores  AlertScores `firestore:"scores" json:"scores"`
}

// Alert is created by the evaluator when a group clears the risk threshold.
// Alerts are append-only: never updated, never deleted by the engine.
type Alert struct {
	ID        string       `firestore:"id" json:"id"`
	Name      string       `firestore:"name" json:"name"`
	RiskScore float64      `firestore:"riskScore" json:"risk_score"`
	Details   AlertDetails `firestore:"details" json:"details"`
	CreatedAt time.Time    `firestore:"createdAt" json:"created_at"`
}

// Keyword is a lexicon entry used for filtering and search. It is not
// consumed by the detection math.
type Keyword struct {
	ID          string    `firestore:"id" json:"id"`
	Term        string    `firestore:"term" json:"term"`
	Category    string    `firestore:"category" json:"category"`
	Description string    `firestore:"description" json:"description"`
	CreatedAt   time.Time `firestore:"createdAt" json:"created_at"`
}

// Annotation is the classifier output attached to a post at ingestion.
type Annotation struct {
	Language string  `json:"language"`
	Toxicity float64 `json:"toxicity"`
	Stance   Stance  `json:"stance"`
}
