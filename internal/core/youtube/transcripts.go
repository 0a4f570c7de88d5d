package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// Transcripts come from the timedtext endpoint, which is not part of
// the Data API. Track listings distinguish manually authored tracks
// from auto-generated ones (kind="asr"); translation targets are
// whatever the listing advertises.
const timedtextURL = "https://video.google.com/timedtext"

type trackList struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []struct {
		LangCode string `xml:"lang_code,attr"`
		Kind     string `xml:"kind,attr"`
	} `xml:"track"`
	Targets []struct {
		LangCode string `xml:"lang_code,attr"`
	} `xml:"target"`
}

func (c *Client) ListTranscripts(ctx context.Context, videoID string) (*models.TranscriptCatalog, error) {
	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", videoID)

	body, err := c.timedtextGet(ctx, q)
	if err != nil {
		return nil, err
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("transcript list %s: %w", videoID, err)
	}

	catalog := &models.TranscriptCatalog{}
	for _, t := range list.Tracks {
		if t.LangCode == "" {
			continue
		}
		if t.Kind == "asr" {
			catalog.Generated = append(catalog.Generated, t.LangCode)
		} else {
			catalog.Manual = append(catalog.Manual, t.LangCode)
		}
	}
	for _, t := range list.Targets {
		if t.LangCode != "" {
			catalog.Translatable = append(catalog.Translatable, t.LangCode)
		}
	}
	return catalog, nil
}

// json3 payload shape of a timedtext track.
type timedtextEvents struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (c *Client) FetchTranscript(ctx context.Context, handle models.TranscriptHandle) ([]models.TranscriptSegment, error) {
	q := url.Values{}
	q.Set("v", handle.VideoID)
	q.Set("fmt", "json3")
	switch handle.Tier {
	case models.TierManual:
		q.Set("lang", handle.Language)
	case models.TierGenerated:
		q.Set("lang", handle.Language)
		q.Set("kind", "asr")
	case models.TierTranslated:
		// Translation needs a source track; the platform picks the
		// default one when lang is omitted from tlang requests.
		q.Set("lang", "en")
		q.Set("tlang", handle.Language)
	default:
		return nil, fmt.Errorf("unknown transcript tier %q", handle.Tier)
	}

	body, err := c.timedtextGet(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("video %s lang %s: %w", handle.VideoID, handle.Language, errs.ErrNoTranscript)
	}

	var payload timedtextEvents
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("transcript %s: %w", handle.VideoID, err)
	}

	var segments []models.TranscriptSegment
	for _, ev := range payload.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			Text:    text,
			StartMs: ev.StartMs,
			EndMs:   ev.StartMs + ev.DurationMs,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("video %s lang %s: %w", handle.VideoID, handle.Language, errs.ErrNoTranscript)
	}
	return segments, nil
}

func (c *Client) timedtextGet(ctx context.Context, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.timedtext+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("timedtext: %w", errs.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("timedtext: %w", errs.ErrNoTranscript)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("timedtext status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}
