// Package youtube implements core.VideoPlatform against the YouTube
// Data API v3 (channel metadata, video listings, search) and the
// timedtext endpoint (transcripts). It carries no retry logic; the
// ingestion gateway owns that.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

const (
	channelURLPrefix = "https://www.youtube.com/channel/"
	pageSize         = 50
)

type Client struct {
	svc       *yt.Service
	http      *http.Client
	timedtext string
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key not set")
	}
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{
		svc:       svc,
		http:      &http.Client{Timeout: 30 * time.Second},
		timedtext: timedtextURL,
	}, nil
}

var _ core.VideoPlatform = (*Client)(nil)

func (c *Client) SearchChannels(ctx context.Context, query, region string, limit int) ([]models.Channel, error) {
	if limit <= 0 {
		limit = 5
	}
	call := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(int64(limit)).
		Context(ctx)
	if region != "" {
		call = call.RegionCode(region)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("channel search %q: %w", query, err)
	}

	out := make([]models.Channel, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.ChannelId == "" || item.Snippet == nil {
			continue
		}
		out = append(out, models.Channel{
			ID:          item.Id.ChannelId,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			URL:         channelURLPrefix + item.Id.ChannelId,
			Thumbnails:  thumbnailSet(item.Snippet.Thumbnails),
			Status:      models.ChannelInactive,
		})
	}
	return out, nil
}

func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*models.Channel, error) {
	resp, err := c.svc.Channels.List([]string{"snippet"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channel info %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, errs.ErrNotFound)
	}

	item := resp.Items[0]
	ch := &models.Channel{
		ID:     item.Id,
		URL:    channelURLPrefix + item.Id,
		Status: models.ChannelInactive,
	}
	if item.Snippet != nil {
		ch.Title = item.Snippet.Title
		ch.Description = item.Snippet.Description
		ch.Thumbnails = thumbnailSet(item.Snippet.Thumbnails)
	}
	return ch, nil
}

// GetChannelVideos walks the channel's uploads playlist and resolves
// each video's duration in one batched videos.list call per page.
func (c *Client) GetChannelVideos(ctx context.Context, channelID string) ([]models.VideoItem, error) {
	chResp, err := c.svc.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channel %s uploads: %w", channelID, err)
	}
	if len(chResp.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, errs.ErrNotFound)
	}
	uploads := ""
	if cd := chResp.Items[0].ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		uploads = cd.RelatedPlaylists.Uploads
	}
	if uploads == "" {
		return nil, nil
	}

	var out []models.VideoItem
	pageToken := ""
	for {
		plResp, err := c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(uploads).
			MaxResults(pageSize).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", uploads, err)
		}

		ids := make([]string, 0, len(plResp.Items))
		titles := make(map[string]string, len(plResp.Items))
		for _, item := range plResp.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			ids = append(ids, item.ContentDetails.VideoId)
			if item.Snippet != nil {
				titles[item.ContentDetails.VideoId] = item.Snippet.Title
			}
		}

		durations, err := c.videoDurations(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			out = append(out, models.VideoItem{
				ID:       id,
				Title:    titles[id],
				Duration: durations[id],
			})
		}

		pageToken = plResp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// videoDurations resolves ISO 8601 durations into the colon form the
// rest of the system expects.
func (c *Client) videoDurations(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	resp, err := c.svc.Videos.List([]string{"contentDetails"}).
		Id(strings.Join(ids, ",")).
		MaxResults(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("video durations: %w", err)
	}
	for _, item := range resp.Items {
		if item.ContentDetails == nil {
			continue
		}
		sec, err := ParseISODuration(item.ContentDetails.Duration)
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", item.Id, err)
		}
		out[item.Id] = FormatColonDuration(sec)
	}
	return out, nil
}

// thumbnailSet flattens the Data API's named renditions, smallest first.
func thumbnailSet(d *yt.ThumbnailDetails) []models.Thumbnail {
	if d == nil {
		return nil
	}
	var out []models.Thumbnail
	for _, t := range []*yt.Thumbnail{d.Default, d.Medium, d.High, d.Standard, d.Maxres} {
		if t == nil || t.Url == "" {
			continue
		}
		url := t.Url
		if strings.HasPrefix(url, "//") {
			url = "https:" + url
		}
		out = append(out, models.Thumbnail{
			URL:    url,
			Width:  int(t.Width),
			Height: int(t.Height),
		})
	}
	return out
}
