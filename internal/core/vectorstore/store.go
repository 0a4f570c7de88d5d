// Package vectorstore is the indexing adapter: it turns transcript
// documents into embedded chunks stored under a channel's namespace and
// answers similarity queries scoped to one namespace.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// Config tunes the chunking pipeline.
//
// ChunkTokens:   approximate tokens per chunk.
// OverlapTokens: token overlap between consecutive chunks for context bleed.
// BatchSize:     how many chunks to embed/write in one batch.
type Config struct {
	ChunkTokens   int
	OverlapTokens int
	BatchSize     int
}

// chunk is the internal representation passed through the pipeline.
type chunk struct {
	VideoID      string
	VideoTitle   string
	ChannelTitle string
	Pos          int
	Text         string
	TokenCnt     int
}

type Store struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	cfg      Config
	log      zerolog.Logger
}

func NewStore(db core.DbClient, embedder core.EmbeddingProvider, cfg Config, log zerolog.Logger) *Store {
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = 500
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &Store{
		db:       db,
		embedder: embedder,
		cfg:      cfg,
		log:      log.With().Str("component", "vectorstore").Logger(),
	}
}

var _ core.VectorIndex = (*Store)(nil)

// IndexDocuments chunks, embeds and persists the batch under the given
// namespace. Failures propagate; the caller decides what they mean for
// its own state machine.
func (s *Store) IndexDocuments(ctx context.Context, namespace string, docs []models.Document) error {
	if namespace == "" {
		return fmt.Errorf("empty namespace")
	}
	if len(docs) == 0 {
		return nil
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	chunkCh := s.streamChunk(gctx, g, docs)

	g.Go(func() error {
		return s.embedAndPersist(gctx, namespace, chunkCh)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("index namespace %s: %w", namespace, err)
	}
	s.log.Info().
		Str("namespace", namespace).
		Int("documents", len(docs)).
		Dur("took", time.Since(started)).
		Msg("indexed document batch")
	return nil
}

// Retrieve embeds the query and returns the namespace's most similar
// chunks.
func (s *Store) Retrieve(ctx context.Context, namespace, query string, topK int) ([]models.TranscriptChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed query: empty result")
	}
	return s.db.SearchTranscriptChunks(ctx, namespace, vecs[0], topK)
}

// embedAndPersist consumes chunks, embeds them in batches, and writes
// them to the store tagged with the namespace.
func (s *Store) embedAndPersist(ctx context.Context, namespace string, in <-chan chunk) error {
	batch := make([]chunk, 0, s.cfg.BatchSize)

	flush := func(items []chunk) error {
		if len(items) == 0 {
			return nil
		}
		texts := make([]string, len(items))
		for i, c := range items {
			texts[i] = c.Text
		}
		vecs, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vecs) != len(items) {
			return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vecs), len(items))
		}

		rows := make([]models.TranscriptChunk, len(items))
		for i, c := range items {
			rows[i] = models.TranscriptChunk{
				ID:           uuid.NewString(),
				Namespace:    namespace,
				VideoID:      c.VideoID,
				VideoTitle:   c.VideoTitle,
				ChannelTitle: c.ChannelTitle,
				Position:     c.Pos,
				Text:         c.Text,
				Embedding:    vecs[i],
			}
		}
		return s.db.InsertTranscriptChunks(ctx, rows)
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return flush(batch)
}
