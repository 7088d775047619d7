package handlers

import (
	"errors"
	"net/http"
	"time"

	language "cloud.google.com/go/language/apiv2"
	"github.com/gin-gonic/gin"

	"go-sentinel/db"
	"go-sentinel/graph"
	"go-sentinel/logging"
	"go-sentinel/processor"
	"go-sentinel/types"
)

const listPostsLimit = 200

// PostIn is the ingestion payload. Language, toxicity and stance are never
// accepted from the client; the pipeline annotates them.
type PostIn struct {
	ID           string                 `json:"id" binding:"required"`
	Platform     string                 `json:"platform" binding:"required"`
	AuthorID     string                 `json:"author_id"`
	AuthorHandle string                 `json:"author_handle"`
	Text         string                 `json:"text" binding:"required"`
	Hashtags     []string               `json:"hashtags"`
	Mentions     []string               `json:"mentions"`
	Meta         map[string]interface{} `json:"meta"`
	CreatedAt    *time.Time             `json:"created_at"`
}

func IngestPost(c *gin.Context, store db.Store, nlpClient *language.Client, mirror *graph.Mirror) {
	var payload PostIn
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := types.Post{
		ID:           payload.ID,
		Platform:     payload.Platform,
		AuthorID:     payload.AuthorID,
		AuthorHandle: payload.AuthorHandle,
		Text:         payload.Text,
		Hashtags:     payload.Hashtags,
		Mentions:     payload.Mentions,
		Meta:         payload.Meta,
	}
	if payload.CreatedAt != nil {
		post.CreatedAt = payload.CreatedAt.UTC()
	}

	saved, _, err := processor.ProcessPost(c.Request.Context(), store, nlpClient, mirror, post)
	if err != nil {
		logging.Error().Err(err).Str("post", post.ID).Msg("ingesting post failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest post"})
		return
	}

	c.JSON(http.StatusOK, saved)
}

func ListPosts(c *gin.Context, store db.Store) {
	posts, err := store.ListPosts(c.Request.Context(), listPostsLimit)
	if err != nil {
		logging.Error().Err(err).Msg("listing posts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}
	if posts == nil {
		posts = []types.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

func GetPost(c *gin.Context, store db.Store) {
	post, err := store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		logging.Error().Err(err).Str("post", c.Param("id")).Msg("getting post failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get post"})
		return
	}
	c.JSON(http.StatusOK, post)
}
