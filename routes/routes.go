package routes

import (
	language "cloud.google.com/go/language/apiv2"
	"github.com/gin-gonic/gin"

	"go-sentinel/db"
	"go-sentinel/detection"
	"go-sentinel/graph"
	"go-sentinel/handlers"
)

// SetupRouter wires the HTTP surface. Handlers get their collaborators
// injected here rather than reaching for package globals.
func SetupRouter(store db.Store, nlpClient *language.Client, evaluator *detection.Evaluator, mirror *graph.Mirror) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Hello, welcome to Sentinel!",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/posts", func(c *gin.Context) {
			handlers.IngestPost(c, store, nlpClient, mirror)
		})
		api.GET("/posts", func(c *gin.Context) {
			handlers.ListPosts(c, store)
		})
		api.GET("/posts/:id", func(c *gin.Context) {
			handlers.GetPost(c, store)
		})

		api.GET("/alerts", func(c *gin.Context) {
			handlers.ListAlerts(c, store, evaluator)
		})
		api.GET("/alerts/campaign/:id", func(c *gin.Context) {
			handlers.CampaignDetails(c, evaluator)
		})

		api.POST("/keywords", func(c *gin.Context) {
			handlers.CreateKeyword(c, store)
		})
		api.GET("/keywords", func(c *gin.Context) {
			handlers.ListKeywords(c, store)
		})
		api.DELETE("/keywords/:id", func(c *gin.Context) {
			handlers.DeleteKeyword(c, store)
		})

		api.GET("/analytics/influencers", func(c *gin.Context) {
			handlers.Influencers(c, store)
		})
		api.GET("/analytics/trends", func(c *gin.Context) {
			handlers.Trends(c, store)
		})
	}

	return r
}
