package types

// FeedResponse represents the root structure of the Bluesky feed response.
type FeedResponse struct {
	Cursor string      `json:"cursor"`
	Feed   []FeedEntry `json:"feed"`
}

// FeedEntry represents each post in the feed.
type FeedEntry struct {
	Post FeedPost `json:"post"`
}

// FeedPost represents an individual post as returned by the feed API.
type FeedPost struct {
	Author      FeedAuthor `json:"author"`
	CID         string     `json:"cid"`
	IndexedAt   string     `json:"indexedAt"`
	LikeCount   int        `json:"likeCount"`
	QuoteCount  int        `json:"quoteCount"`
	Record      FeedRecord `json:"record"`
	ReplyCount  int        `json:"replyCount"`
	RepostCount int        `json:"repostCount"`
	URI         string     `json:"uri"`
}

// FeedAuthor represents the author of a post.
type FeedAuthor struct {
	Avatar      string `json:"avatar"`
	CreatedAt   string `json:"createdAt"`
	DID         string `json:"did"`
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
}

// FeedRecord represents the content of a post.
type FeedRecord struct {
	Type      string      `json:"$type"`
	CreatedAt string      `json:"createdAt"`
	Facets    []FeedFacet `json:"facets,omitempty"`
	Langs     []string    `json:"langs"`
	Text      string      `json:"text"`
}

// FeedFacet represents features like tags or mentions in a post.
type FeedFacet struct {
	Features []FeedFeature `json:"features"`
	Index    FeedIndex     `json:"index"`
}

// FeedFeature represents a tag, mention or link feature in text.
type FeedFeature struct {
	Type string `json:"$type"`
	Tag  string `json:"tag,omitempty"`
	DID  string `json:"did,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// FeedIndex represents the position of a facet in text.
type FeedIndex struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}
