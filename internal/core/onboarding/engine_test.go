package onboarding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/core/ingest"
	"github.com/markdave123-py/TubeSage/internal/models"
	"github.com/markdave123-py/TubeSage/internal/retry"
)

type fakeDB struct {
	core.DbClient

	channels     map[string]*models.Channel
	requests     map[string]*models.OnboardingRequest
	userChannels map[string][]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		channels:     map[string]*models.Channel{},
		requests:     map[string]*models.OnboardingRequest{},
		userChannels: map[string][]string{},
	}
}

func (f *fakeDB) UpsertChannel(ctx context.Context, ch *models.Channel) error {
	cp := *ch
	if existing, ok := f.channels[ch.ID]; ok {
		cp.Status = existing.Status
	}
	f.channels[ch.ID] = &cp
	return nil
}

func (f *fakeDB) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeDB) UpdateChannelStatus(ctx context.Context, id string, status models.ChannelStatus) error {
	ch, ok := f.channels[id]
	if !ok {
		return fmt.Errorf("channel %s not found", id)
	}
	ch.Status = status
	return nil
}

func (f *fakeDB) CreateOnboardingRequest(ctx context.Context, req *models.OnboardingRequest) error {
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeDB) GetOnboardingRequest(ctx context.Context, id string) (*models.OnboardingRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (f *fakeDB) UpdateOnboardingRequestStatus(ctx context.Context, id string, status models.OnboardingStatus) error {
	req, ok := f.requests[id]
	if !ok {
		return fmt.Errorf("request %s not found", id)
	}
	req.Status = status
	return nil
}

func (f *fakeDB) AddUserChannel(ctx context.Context, sessionID, channelID string) error {
	f.userChannels[sessionID] = append(f.userChannels[sessionID], channelID)
	return nil
}

type fakeIndex struct {
	calls      int
	namespaces []string
	docs       [][]models.Document
	err        error
}

func (f *fakeIndex) IndexDocuments(ctx context.Context, namespace string, docs []models.Document) error {
	f.calls++
	f.namespaces = append(f.namespaces, namespace)
	f.docs = append(f.docs, docs)
	return f.err
}

func (f *fakeIndex) Retrieve(ctx context.Context, namespace, query string, topK int) ([]models.TranscriptChunk, error) {
	return nil, nil
}

type fakeVideoPlatform struct {
	channels    map[string]*models.Channel
	videos      map[string][]models.VideoItem
	transcripts map[string][]models.TranscriptSegment
}

func (f *fakeVideoPlatform) SearchChannels(ctx context.Context, query, region string, limit int) ([]models.Channel, error) {
	return nil, nil
}

func (f *fakeVideoPlatform) GetChannelInfo(ctx context.Context, channelID string) (*models.Channel, error) {
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, errs.ErrNotFound)
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeVideoPlatform) GetChannelVideos(ctx context.Context, channelID string) ([]models.VideoItem, error) {
	return f.videos[channelID], nil
}

func (f *fakeVideoPlatform) ListTranscripts(ctx context.Context, videoID string) (*models.TranscriptCatalog, error) {
	if _, ok := f.transcripts[videoID]; !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, errs.ErrNoTranscript)
	}
	return &models.TranscriptCatalog{Manual: []string{"en"}}, nil
}

func (f *fakeVideoPlatform) FetchTranscript(ctx context.Context, handle models.TranscriptHandle) ([]models.TranscriptSegment, error) {
	return f.transcripts[handle.VideoID], nil
}

func newTestEngine(db *fakeDB, platform *fakeVideoPlatform, index *fakeIndex) *Engine {
	gateway := ingest.NewGateway(platform, retry.Config{
		MaxAttempts: 2, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond,
	}, zerolog.Nop())
	return NewEngine(db, gateway, index, nil, Options{
		MinVideoDurationSec: 60,
		TranscriptLanguages: []string{"en"},
	}, zerolog.Nop())
}

func TestCreateRequestUnknownChannel(t *testing.T) {
	engine := newTestEngine(newFakeDB(), &fakeVideoPlatform{channels: map[string]*models.Channel{}}, &fakeIndex{})

	_, err := engine.CreateRequest(context.Background(), "missing", "sess1")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateRequestQueuesNewChannel(t *testing.T) {
	db := newFakeDB()
	platform := &fakeVideoPlatform{
		channels: map[string]*models.Channel{"ch1": {ID: "ch1", Title: "Chan One"}},
	}
	engine := newTestEngine(db, platform, &fakeIndex{})

	req, err := engine.CreateRequest(context.Background(), "ch1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingQueued, req.Status)
	assert.Equal(t, "ch1", req.ChannelID)
	assert.Len(t, engine.jobs, 1, "request id is queued for the workers")

	stored, _ := db.GetChannelByID(context.Background(), "ch1")
	require.NotNil(t, stored, "unknown channels are persisted on first request")
	assert.Equal(t, models.ChannelInactive, stored.Status)
	assert.Contains(t, db.userChannels["sess1"], "ch1")
}

func TestCreateRequestActiveChannelAutocompletes(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Status: models.ChannelActive}
	index := &fakeIndex{}
	engine := newTestEngine(db, &fakeVideoPlatform{}, index)

	req, err := engine.CreateRequest(context.Background(), "ch1", "")
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingAutocompleted, req.Status)
	assert.Len(t, engine.jobs, 0, "no work is queued for an onboarded channel")
	assert.Equal(t, 0, index.calls)
}

func seedQueuedRequest(db *fakeDB, channelID string) string {
	db.requests["req1"] = &models.OnboardingRequest{
		ID:        "req1",
		ChannelID: channelID,
		Status:    models.OnboardingQueued,
	}
	return "req1"
}

func TestProcessRequestIndexesTranscribedVideos(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Title: "Chan One", Status: models.ChannelInactive}
	reqID := seedQueuedRequest(db, "ch1")

	platform := &fakeVideoPlatform{
		videos: map[string][]models.VideoItem{"ch1": {
			{ID: "v1", Title: "First", Duration: "10:00"},
			{ID: "v2", Title: "Second", Duration: "5:00"},
			{ID: "v3", Title: "Third", Duration: "8:00"},
		}},
		transcripts: map[string][]models.TranscriptSegment{
			"v1": {{Text: "later", StartMs: 5000, EndMs: 6000}, {Text: "earlier", StartMs: 0, EndMs: 1000}},
			"v3": {{Text: "only line", StartMs: 0, EndMs: 2000}},
		},
	}
	index := &fakeIndex{}
	engine := newTestEngine(db, platform, index)

	require.NoError(t, engine.ProcessRequest(context.Background(), reqID))

	require.Equal(t, 1, index.calls)
	assert.Equal(t, []string{"ch1"}, index.namespaces)
	docs := index.docs[0]
	require.Len(t, docs, 2, "the video without a transcript is skipped")
	assert.Equal(t, "v1", docs[0].Metadata["video_id"])
	assert.Equal(t, "earlier\nlater", docs[0].Text, "segments are ordered by start offset")
	assert.Equal(t, "v3", docs[1].Metadata["video_id"])
	assert.Equal(t, "Chan One", docs[0].Metadata["channel_title"])

	ch, _ := db.GetChannelByID(context.Background(), "ch1")
	assert.Equal(t, models.ChannelActive, ch.Status)
	req, _ := db.GetOnboardingRequest(context.Background(), reqID)
	assert.Equal(t, models.OnboardingCompleted, req.Status)
}

func TestProcessRequestShortVideosFilteredOut(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Status: models.ChannelInactive}
	reqID := seedQueuedRequest(db, "ch1")

	platform := &fakeVideoPlatform{
		videos: map[string][]models.VideoItem{"ch1": {
			{ID: "v1", Title: "Short", Duration: "0:30"},
			{ID: "v2", Title: "Shorter", Duration: "0:59"},
		}},
		transcripts: map[string][]models.TranscriptSegment{
			"v1": {{Text: "never fetched"}},
		},
	}
	index := &fakeIndex{}
	engine := newTestEngine(db, platform, index)

	err := engine.ProcessRequest(context.Background(), reqID)
	require.ErrorIs(t, err, errs.ErrNoContent)
	assert.Equal(t, 0, index.calls)

	ch, _ := db.GetChannelByID(context.Background(), "ch1")
	assert.Equal(t, models.ChannelInactive, ch.Status, "channel never activates without indexed content")
	req, _ := db.GetOnboardingRequest(context.Background(), reqID)
	assert.Equal(t, models.OnboardingFailed, req.Status)
}

func TestProcessRequestAllTranscriptsMissing(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Status: models.ChannelInactive}
	reqID := seedQueuedRequest(db, "ch1")

	platform := &fakeVideoPlatform{
		videos: map[string][]models.VideoItem{"ch1": {
			{ID: "v1", Title: "First", Duration: "10:00"},
		}},
		transcripts: map[string][]models.TranscriptSegment{},
	}
	index := &fakeIndex{}
	engine := newTestEngine(db, platform, index)

	err := engine.ProcessRequest(context.Background(), reqID)
	require.ErrorIs(t, err, errs.ErrNoContent)
	req, _ := db.GetOnboardingRequest(context.Background(), reqID)
	assert.Equal(t, models.OnboardingFailed, req.Status)
}

func TestProcessRequestRejectsNonQueuedStatus(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Status: models.ChannelInactive}
	db.requests["req1"] = &models.OnboardingRequest{
		ID: "req1", ChannelID: "ch1", Status: models.OnboardingCompleted,
	}
	engine := newTestEngine(db, &fakeVideoPlatform{}, &fakeIndex{})

	err := engine.ProcessRequest(context.Background(), "req1")
	require.ErrorIs(t, err, errs.ErrInvalidState)

	req, _ := db.GetOnboardingRequest(context.Background(), "req1")
	assert.Equal(t, models.OnboardingCompleted, req.Status, "terminal requests stay untouched")
}

func TestProcessRequestUnknownRequest(t *testing.T) {
	engine := newTestEngine(newFakeDB(), &fakeVideoPlatform{}, &fakeIndex{})
	err := engine.ProcessRequest(context.Background(), "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProcessRequestChannelAlreadyActiveSkipsIndexing(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Status: models.ChannelActive}
	reqID := seedQueuedRequest(db, "ch1")
	index := &fakeIndex{}
	engine := newTestEngine(db, &fakeVideoPlatform{}, index)

	err := engine.ProcessRequest(context.Background(), reqID)
	require.ErrorIs(t, err, errs.ErrInvalidState, "caller learns no ingestion happened")
	assert.Equal(t, 0, index.calls, "no double indexing for a channel onboarded concurrently")
	req, _ := db.GetOnboardingRequest(context.Background(), reqID)
	assert.Equal(t, models.OnboardingCompleted, req.Status, "the request itself still completes")
}

func TestProcessRequestSecondRunIsInvalid(t *testing.T) {
	db := newFakeDB()
	db.channels["ch1"] = &models.Channel{ID: "ch1", Title: "Chan", Status: models.ChannelInactive}
	reqID := seedQueuedRequest(db, "ch1")

	platform := &fakeVideoPlatform{
		videos: map[string][]models.VideoItem{"ch1": {
			{ID: "v1", Title: "First", Duration: "10:00"},
		}},
		transcripts: map[string][]models.TranscriptSegment{
			"v1": {{Text: "hello", StartMs: 0, EndMs: 1000}},
		},
	}
	index := &fakeIndex{}
	engine := newTestEngine(db, platform, index)

	require.NoError(t, engine.ProcessRequest(context.Background(), reqID))
	err := engine.ProcessRequest(context.Background(), reqID)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	assert.Equal(t, 1, index.calls, "reprocessing never indexes twice")
}
