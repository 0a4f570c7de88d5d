// Package app wires configuration, storage, the video platform,
// the generation backend and the HTTP server into one process.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/config"
	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/chat"
	db "github.com/markdave123-py/TubeSage/internal/core/database"
	"github.com/markdave123-py/TubeSage/internal/core/ingest"
	"github.com/markdave123-py/TubeSage/internal/core/llm"
	objectclient "github.com/markdave123-py/TubeSage/internal/core/object-client"
	"github.com/markdave123-py/TubeSage/internal/core/onboarding"
	"github.com/markdave123-py/TubeSage/internal/core/vectorstore"
	"github.com/markdave123-py/TubeSage/internal/core/youtube"
	"github.com/markdave123-py/TubeSage/internal/retry"
)

type App struct {
	DBClient   core.DbClient
	Onboarding *onboarding.Engine
	ChatStore  *chat.Store
	ChatEngine *chat.Engine
	Server     *Server

	log zerolog.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	log.Info().Msg("database initialized and ready")

	platform, err := youtube.NewClient(appCtx, cfg.YouTubeAPIKey)
	if err != nil {
		return nil, fmt.Errorf("init video platform client: %w", err)
	}
	gateway := ingest.NewGateway(platform, retry.DefaultConfig(), log)

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	chatLLM, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("init generation backend: %w", err)
	}

	index := vectorstore.NewStore(dbClient, embedder, vectorstore.Config{
		ChunkTokens:   cfg.ChunkTokens,
		OverlapTokens: cfg.OverlapTokens,
		BatchSize:     cfg.EmbedBatchSize,
	}, log)

	// Transcript archiving is optional; without it onboarding still
	// works, transcripts are just not retained outside the index.
	var archive core.ObjectClient
	if cfg.ArchiveTranscripts {
		archive, err = objectclient.NewS3Client(appCtx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("init transcript archive: %w", err)
		}
	}

	onboardEngine := onboarding.NewEngine(dbClient, gateway, index, archive, onboarding.Options{
		MinVideoDurationSec: cfg.MinVideoDurationSec,
		TranscriptLanguages: cfg.TranscriptLanguages,
		ArchiveBucket:       cfg.BucketName,
	}, log)
	onboardEngine.Start(ctx, cfg.OnboardWorkers)
	log.Info().Int("workers", cfg.OnboardWorkers).Msg("onboarding workers started")

	chatStore := chat.NewStore(dbClient, cfg.VectorIndexName, log)
	chatEngine := chat.NewEngine(dbClient, index, chatLLM, cfg.RetrievalTopK, log)

	server := NewServer(cfg, dbClient, onboardEngine, chatStore, chatEngine, log)

	return &App{
		DBClient:   dbClient,
		Onboarding: onboardEngine,
		ChatStore:  chatStore,
		ChatEngine: chatEngine,
		Server:     server,
		log:        log,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
