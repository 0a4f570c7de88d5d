package onboarding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/markdave123-py/TubeSage/internal/models"
)

type archivedVideo struct {
	VideoID    string                     `json:"video_id"`
	Title      string                     `json:"title"`
	Transcript []models.TranscriptSegment `json:"transcript"`
}

// archiveTranscripts uploads the raw transcripts of an onboarded
// channel to object storage. Archiving is best effort: failures are
// logged and never affect the request outcome.
func (e *Engine) archiveTranscripts(ctx context.Context, ch *models.Channel, videos []models.Video) {
	if e.archive == nil || e.opts.ArchiveBucket == "" {
		return
	}

	records := make([]archivedVideo, 0, len(videos))
	for _, v := range videos {
		records = append(records, archivedVideo{VideoID: v.ID, Title: v.Title, Transcript: v.Transcript})
	}
	payload, err := json.Marshal(records)
	if err != nil {
		e.log.Error().Err(err).Str("channel_id", ch.ID).Msg("could not encode transcript archive")
		return
	}

	key := fmt.Sprintf("transcripts/%s.json", ch.ID)
	if _, err := e.archive.UploadFile(ctx, e.opts.ArchiveBucket, key, payload, "application/json"); err != nil {
		e.log.Error().Err(err).Str("channel_id", ch.ID).Str("key", key).Msg("transcript archive upload failed")
		return
	}
	e.log.Info().Str("channel_id", ch.ID).Str("key", key).Msg("transcripts archived")
}
