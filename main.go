package main

import (
	"os"

	"github.com/joho/godotenv"

	"go-sentinel/cronjobs"
	"go-sentinel/db"
	"go-sentinel/detection"
	"go-sentinel/embedding"
	"go-sentinel/graph"
	"go-sentinel/logging"
	"go-sentinel/nlp"
	"go-sentinel/routes"
)

func main() {
	// Load .env file; a missing file is fine in deployed environments where
	// configuration arrives through the process environment.
	if err := godotenv.Load(); err != nil {
		logging.Warn().Msg("no .env file loaded")
	}
	logging.Init()

	store, closeStore, err := openStore()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	nlpClient, err := nlp.InitLanguageClient()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create Natural Language client")
	}
	defer nlp.CloseLanguageClient()

	embedder := embedding.FromEnv()
	evaluator := detection.NewEvaluator(store, embedder)
	mirror := graph.NewMirrorFromEnv()

	c := cronjobs.InitCronJobs(store, nlpClient, evaluator, mirror)
	defer c.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := routes.SetupRouter(store, nlpClient, evaluator, mirror)
	if err := r.Run(":" + port); err != nil {
		logging.Fatal().Err(err).Msg("failed to start server")
	}
}

// openStore picks the backing store from STORAGE_BACKEND. Firestore is the
// default; "sqlite" selects the embedded store for local and single-node
// deployments.
func openStore() (db.Store, func(), error) {
	switch os.Getenv("STORAGE_BACKEND") {
	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "sentinel.db"
		}
		store, err := db.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", path).Msg("using sqlite store")
		return store, func() { store.Close() }, nil
	default:
		client, err := db.InitFirestore()
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Msg("using firestore store")
		return db.NewFirestore(client), db.CloseFirestore, nil
	}
}
