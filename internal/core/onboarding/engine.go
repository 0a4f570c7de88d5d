// Package onboarding owns the channel onboarding request lifecycle:
// creation, deduplication against already-active channels, the
// queued/processing transitions, ingestion plus indexing, and terminal
// success or failure recording.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/core/ingest"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// Options tunes one engine instance.
//
// MinVideoDurationSec: videos shorter than this never reach transcript
// fetching. TranscriptConcurrency bounds parallel transcript downloads
// per request.
type Options struct {
	MinVideoDurationSec   int
	TranscriptLanguages   []string
	TranscriptConcurrency int
	QueueSize             int
	ArchiveBucket         string
}

type Engine struct {
	db      core.DbClient
	gateway *ingest.Gateway
	index   core.VectorIndex
	archive core.ObjectClient // nil disables transcript archiving
	opts    Options
	jobs    chan string
	log     zerolog.Logger
}

// NewEngine constructs the engine with a bounded job queue.
func NewEngine(db core.DbClient, gateway *ingest.Gateway, index core.VectorIndex, archive core.ObjectClient, opts Options, log zerolog.Logger) *Engine {
	if opts.MinVideoDurationSec <= 0 {
		opts.MinVideoDurationSec = 60
	}
	if len(opts.TranscriptLanguages) == 0 {
		opts.TranscriptLanguages = []string{"en", "en-IN"}
	}
	if opts.TranscriptConcurrency <= 0 {
		opts.TranscriptConcurrency = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Engine{
		db:      db,
		gateway: gateway,
		index:   index,
		archive: archive,
		opts:    opts,
		jobs:    make(chan string, opts.QueueSize),
		log:     log.With().Str("component", "onboarding").Logger(),
	}
}

// Start runs worker goroutines draining the request queue. Processing
// errors are logged; the terminal FAILED status is already recorded by
// ProcessRequest before the error surfaces here.
func (e *Engine) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					e.log.Info().Int("worker", w).Msg("onboarding worker shutting down")
					return
				case requestID := <-e.jobs:
					e.log.Info().Int("worker", w).Str("request_id", requestID).Msg("processing onboarding request")
					if err := e.ProcessRequest(ctx, requestID); err != nil {
						if errors.Is(err, errs.ErrInvalidState) {
							e.log.Warn().Err(err).Str("request_id", requestID).Msg("onboarding request skipped")
						} else {
							e.log.Error().Err(err).Str("request_id", requestID).Msg("onboarding request failed")
						}
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a request ID for processing. If the queue is full,
// this call blocks until space frees up.
func (e *Engine) Enqueue(requestID string) {
	e.jobs <- requestID
}

// CreateRequest registers an onboarding request for a channel. Unknown
// channels are fetched from the platform and persisted INACTIVE first;
// a channel that is already ACTIVE produces an AUTOCOMPLETED request
// immediately so no duplicate ingestion work is queued.
func (e *Engine) CreateRequest(ctx context.Context, channelID, requestedBy string) (*models.OnboardingRequest, error) {
	ch, err := e.db.GetChannelByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}
	if ch == nil {
		ch, err = e.gateway.GetChannelInfo(ctx, channelID)
		if err != nil {
			return nil, err
		}
		ch.Status = models.ChannelInactive
		if err := e.db.UpsertChannel(ctx, ch); err != nil {
			return nil, fmt.Errorf("persist channel %s: %w", channelID, err)
		}
	}

	if requestedBy != "" {
		if err := e.db.AddUserChannel(ctx, requestedBy, channelID); err != nil {
			return nil, fmt.Errorf("record channel for user %s: %w", requestedBy, err)
		}
	}

	req := &models.OnboardingRequest{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		RequestedBy: requestedBy,
		Status:      models.OnboardingPending,
	}

	if ch.Status == models.ChannelActive {
		req.Status = models.OnboardingAutocompleted
		if err := e.db.CreateOnboardingRequest(ctx, req); err != nil {
			return nil, fmt.Errorf("persist request: %w", err)
		}
		e.log.Info().Str("channel_id", channelID).Str("request_id", req.ID).Msg("channel already active, request autocompleted")
		return req, nil
	}

	if err := e.db.CreateOnboardingRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("persist request: %w", err)
	}
	if err := e.db.UpdateOnboardingRequestStatus(ctx, req.ID, models.OnboardingQueued); err != nil {
		return nil, fmt.Errorf("queue request %s: %w", req.ID, err)
	}
	req.Status = models.OnboardingQueued

	e.Enqueue(req.ID)
	return req, nil
}

// ProcessRequest drives one queued request to a terminal state. Any
// fault after the PROCESSING transition records FAILED before the error
// returns to the caller. A channel that became ACTIVE in the meantime
// short-circuits to COMPLETED without re-indexing and reports
// ErrInvalidState so the caller knows no ingestion ran.
func (e *Engine) ProcessRequest(ctx context.Context, requestID string) error {
	req, err := e.db.GetOnboardingRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request %s: %w", requestID, err)
	}
	if req == nil {
		return fmt.Errorf("onboarding request %s: %w", requestID, errs.ErrNotFound)
	}
	if req.Status != models.OnboardingQueued {
		return fmt.Errorf("onboarding request %s has status %s, want %s: %w",
			requestID, req.Status, models.OnboardingQueued, errs.ErrInvalidState)
	}

	if err := e.db.UpdateOnboardingRequestStatus(ctx, requestID, models.OnboardingProcessing); err != nil {
		return fmt.Errorf("mark request %s processing: %w", requestID, err)
	}

	fail := func(cause error) error {
		if err := e.db.UpdateOnboardingRequestStatus(ctx, requestID, models.OnboardingFailed); err != nil {
			e.log.Error().Err(err).Str("request_id", requestID).Msg("could not record failed status")
		}
		return cause
	}

	ch, err := e.db.GetChannelByID(ctx, req.ChannelID)
	if err != nil {
		return fail(fmt.Errorf("load channel %s: %w", req.ChannelID, err))
	}
	if ch == nil {
		return fail(fmt.Errorf("channel %s: %w", req.ChannelID, errs.ErrNotFound))
	}
	if ch.Status == models.ChannelActive {
		// A concurrent request finished this channel first. The request
		// completes without indexing, but the caller is told no work
		// was performed.
		e.log.Info().Str("channel_id", ch.ID).Str("request_id", requestID).Msg("channel already onboarded, completing without indexing")
		if err := e.db.UpdateOnboardingRequestStatus(ctx, requestID, models.OnboardingCompleted); err != nil {
			return fmt.Errorf("complete request %s: %w", requestID, err)
		}
		return fmt.Errorf("channel %s for request %s already onboarded: %w", ch.ID, requestID, errs.ErrInvalidState)
	}

	videos, err := e.fetchTranscribedVideos(ctx, ch)
	if err != nil {
		return fail(err)
	}
	if len(videos) == 0 {
		return fail(fmt.Errorf("channel %s: %w", ch.ID, errs.ErrNoContent))
	}

	docs := buildDocuments(ch, videos)
	if err := e.index.IndexDocuments(ctx, ch.ID, docs); err != nil {
		return fail(err)
	}

	if err := e.db.UpdateChannelStatus(ctx, ch.ID, models.ChannelActive); err != nil {
		return fail(fmt.Errorf("activate channel %s: %w", ch.ID, err))
	}
	if err := e.db.UpdateOnboardingRequestStatus(ctx, requestID, models.OnboardingCompleted); err != nil {
		return fail(fmt.Errorf("complete request %s: %w", requestID, err))
	}

	e.archiveTranscripts(ctx, ch, videos)

	e.log.Info().
		Str("channel_id", ch.ID).
		Str("request_id", requestID).
		Int("videos_indexed", len(videos)).
		Msg("channel onboarded")
	return nil
}

// fetchTranscribedVideos lists the channel's videos, drops the ones
// below the duration floor and downloads transcripts with bounded
// concurrency. A video whose transcript cannot be retrieved is skipped,
// never fatal for the request.
func (e *Engine) fetchTranscribedVideos(ctx context.Context, ch *models.Channel) ([]models.Video, error) {
	items, err := e.gateway.GetChannelVideos(ctx, ch.ID)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Video, 0, len(items))
	for _, item := range items {
		sec, err := ingest.DurationSeconds(item.Duration)
		if err != nil {
			e.log.Warn().Str("video_id", item.ID).Str("duration", item.Duration).Msg("unparseable duration, skipping video")
			continue
		}
		if sec < e.opts.MinVideoDurationSec {
			continue
		}
		candidates = append(candidates, models.Video{
			ID:          item.ID,
			Title:       item.Title,
			ChannelID:   ch.ID,
			DurationSec: sec,
		})
	}
	e.log.Info().Str("channel_id", ch.ID).Int("videos_total", len(items)).Int("videos_eligible", len(candidates)).Msg("retrieved channel videos")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.TranscriptConcurrency)
	for i := range candidates {
		g.Go(func() error {
			v := &candidates[i]
			segments, err := e.gateway.DownloadTranscript(gctx, v.ID, e.opts.TranscriptLanguages)
			if err != nil {
				e.log.Warn().Err(err).Str("video_id", v.ID).Msg("transcript unavailable, skipping video")
				return nil
			}
			sort.SliceStable(segments, func(a, b int) bool {
				return segments[a].StartMs < segments[b].StartMs
			})
			v.Transcript = segments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := candidates[:0]
	for _, v := range candidates {
		if len(v.Transcript) > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

// buildDocuments turns each transcribed video into one retrievable
// document: segments concatenated in order plus identifying metadata.
func buildDocuments(ch *models.Channel, videos []models.Video) []models.Document {
	docs := make([]models.Document, 0, len(videos))
	for _, v := range videos {
		texts := make([]string, 0, len(v.Transcript))
		for _, seg := range v.Transcript {
			texts = append(texts, seg.Text)
		}
		docs = append(docs, models.Document{
			Text: strings.Join(texts, "\n"),
			Metadata: map[string]string{
				"video_id":      v.ID,
				"video_title":   v.Title,
				"channel_id":    ch.ID,
				"channel_title": ch.Title,
			},
		})
	}
	return docs
}
