package onboarding

import (
	"context"
	"fmt"

	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// SearchChannels looks up channels on the platform by free-text query.
// Discovered channels are persisted so later detail lookups and
// onboarding requests find them locally; persistence failures only log.
func (e *Engine) SearchChannels(ctx context.Context, query, region string, limit int) ([]models.Channel, error) {
	channels, err := e.gateway.SearchChannels(ctx, query, region, limit)
	if err != nil {
		return nil, err
	}
	for i := range channels {
		channels[i].Status = models.ChannelInactive
		if err := e.db.UpsertChannel(ctx, &channels[i]); err != nil {
			e.log.Warn().Err(err).Str("channel_id", channels[i].ID).Msg("could not persist discovered channel")
		}
	}
	return channels, nil
}

// ChannelDetails returns the stored channel record, falling back to a
// live platform lookup for channels never seen before.
func (e *Engine) ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error) {
	ch, err := e.db.GetChannelByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}
	if ch != nil {
		return ch, nil
	}
	ch, err = e.gateway.GetChannelInfo(ctx, channelID)
	if err != nil {
		return nil, err
	}
	ch.Status = models.ChannelInactive
	if err := e.db.UpsertChannel(ctx, ch); err != nil {
		e.log.Warn().Err(err).Str("channel_id", channelID).Msg("could not persist channel details")
	}
	return ch, nil
}

// Request returns a stored onboarding request or errs.ErrNotFound.
func (e *Engine) Request(ctx context.Context, requestID string) (*models.OnboardingRequest, error) {
	req, err := e.db.GetOnboardingRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if req == nil {
		return nil, fmt.Errorf("onboarding request %s: %w", requestID, errs.ErrNotFound)
	}
	return req, nil
}
