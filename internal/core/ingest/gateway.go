// Package ingest is the retrying adapter between the onboarding engine
// and the external video platform. It owns attempt budgets, backoff and
// transcript tier selection; the platform client underneath stays dumb.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
	"github.com/markdave123-py/TubeSage/internal/retry"
)

type Gateway struct {
	platform core.VideoPlatform
	cfg      retry.Config
	log      zerolog.Logger
}

func NewGateway(platform core.VideoPlatform, cfg retry.Config, log zerolog.Logger) *Gateway {
	return &Gateway{
		platform: platform,
		cfg:      cfg,
		log:      log.With().Str("component", "ingest_gateway").Logger(),
	}
}

// notFoundIsPermanent stops retrying once the platform says the thing
// does not exist; everything else gets the full attempt budget.
func notFoundIsPermanent(err error) bool {
	return !errors.Is(err, errs.ErrNotFound)
}

func (g *Gateway) GetChannelInfo(ctx context.Context, channelID string) (*models.Channel, error) {
	var ch *models.Channel
	err := retry.Do(ctx, g.cfg, g.log, notFoundIsPermanent, func() error {
		var opErr error
		ch, opErr = g.platform.GetChannelInfo(ctx, channelID)
		return opErr
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("channel info %s: %w: %w", channelID, errs.ErrUpstreamUnavailable, err)
	}
	return ch, nil
}

func (g *Gateway) GetChannelVideos(ctx context.Context, channelID string) ([]models.VideoItem, error) {
	var items []models.VideoItem
	err := retry.Do(ctx, g.cfg, g.log, notFoundIsPermanent, func() error {
		var opErr error
		items, opErr = g.platform.GetChannelVideos(ctx, channelID)
		return opErr
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("channel videos %s: %w: %w", channelID, errs.ErrUpstreamUnavailable, err)
	}
	return items, nil
}

// SearchChannels is a single pass-through; interactive search is not
// worth a retry budget.
func (g *Gateway) SearchChannels(ctx context.Context, query, region string, limit int) ([]models.Channel, error) {
	return g.platform.SearchChannels(ctx, query, region, limit)
}

// DownloadTranscript selects the best available transcript for the
// caller's ordered language preferences: manually authored tracks
// first, then auto-generated, then machine-translated; within a tier
// the caller's language order decides. The fetch is retried only on
// rate-limit and transient failures; a missing transcript fails
// immediately with ErrNoTranscript.
func (g *Gateway) DownloadTranscript(ctx context.Context, videoID string, languages []string) ([]models.TranscriptSegment, error) {
	var catalog *models.TranscriptCatalog
	err := retry.Do(ctx, g.cfg, g.log, retry.IsTransient, func() error {
		var opErr error
		catalog, opErr = g.platform.ListTranscripts(ctx, videoID)
		return opErr
	})
	if err != nil {
		if errors.Is(err, errs.ErrNoTranscript) {
			return nil, err
		}
		return nil, fmt.Errorf("list transcripts %s: %w: %w", videoID, errs.ErrUpstreamUnavailable, err)
	}

	handle, ok := selectTranscript(videoID, catalog, languages)
	if !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, errs.ErrNoTranscript)
	}
	g.log.Debug().
		Str("video_id", videoID).
		Str("lang", handle.Language).
		Str("tier", string(handle.Tier)).
		Msg("selected transcript track")

	var segments []models.TranscriptSegment
	err = retry.Do(ctx, g.cfg, g.log, retry.IsTransient, func() error {
		var opErr error
		segments, opErr = g.platform.FetchTranscript(ctx, handle)
		return opErr
	})
	if err != nil {
		if errors.Is(err, errs.ErrNoTranscript) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch transcript %s: %w: %w", videoID, errs.ErrUpstreamUnavailable, err)
	}
	return segments, nil
}

// selectTranscript walks the tiers in contract order. Returning the
// first language hit inside a tier keeps the caller's preference order
// authoritative within that tier.
func selectTranscript(videoID string, catalog *models.TranscriptCatalog, languages []string) (models.TranscriptHandle, bool) {
	if catalog == nil {
		return models.TranscriptHandle{}, false
	}
	tiers := []struct {
		tier  models.TranscriptTier
		langs []string
	}{
		{models.TierManual, catalog.Manual},
		{models.TierGenerated, catalog.Generated},
		{models.TierTranslated, catalog.Translatable},
	}
	for _, t := range tiers {
		available := make(map[string]bool, len(t.langs))
		for _, l := range t.langs {
			available[l] = true
		}
		for _, lang := range languages {
			if available[lang] {
				return models.TranscriptHandle{VideoID: videoID, Language: lang, Tier: t.tier}, true
			}
		}
	}
	return models.TranscriptHandle{}, false
}
