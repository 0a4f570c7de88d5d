package core

import (
	"context"

	"github.com/markdave123-py/TubeSage/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a
// specific DB. Point lookups return (nil, nil) when the row is absent;
// callers map that to their own not-found error.
type DbClient interface {
	UpsertChannel(ctx context.Context, ch *models.Channel) error
	GetChannelByID(ctx context.Context, id string) (*models.Channel, error)
	UpdateChannelStatus(ctx context.Context, id string, status models.ChannelStatus) error

	CreateOnboardingRequest(ctx context.Context, req *models.OnboardingRequest) error
	GetOnboardingRequest(ctx context.Context, id string) (*models.OnboardingRequest, error)
	UpdateOnboardingRequestStatus(ctx context.Context, id string, status models.OnboardingStatus) error

	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	AppendChatResponses(ctx context.Context, chatID string, turns []models.ChatResponse) error
	ListChatResponses(ctx context.Context, chatID string, completedOnly bool) ([]models.ChatResponse, error)

	InsertChatSession(ctx context.Context, s *models.ChatSession) error
	LatestChatSession(ctx context.Context, sessionID, channelID string) (*models.ChatSession, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserBySession(ctx context.Context, sessionID string) (*models.User, error)
	AddUserChannel(ctx context.Context, sessionID, channelID string) error

	InsertTranscriptChunks(ctx context.Context, chunks []models.TranscriptChunk) error
	SearchTranscriptChunks(ctx context.Context, namespace string, queryVec []float32, limit int) ([]models.TranscriptChunk, error)

	Close() error
}

// VideoPlatform is the raw, un-retried surface of the external video
// platform. The ingestion gateway layers retry and tier selection on
// top of it.
type VideoPlatform interface {
	SearchChannels(ctx context.Context, query, region string, limit int) ([]models.Channel, error)
	GetChannelInfo(ctx context.Context, channelID string) (*models.Channel, error)
	GetChannelVideos(ctx context.Context, channelID string) ([]models.VideoItem, error)
	ListTranscripts(ctx context.Context, videoID string) (*models.TranscriptCatalog, error)
	FetchTranscript(ctx context.Context, handle models.TranscriptHandle) ([]models.TranscriptSegment, error)
}

// VectorIndex stores documents under a namespace and retrieves the
// chunks most similar to a query, never mixing namespaces.
type VectorIndex interface {
	IndexDocuments(ctx context.Context, namespace string, docs []models.Document) error
	Retrieve(ctx context.Context, namespace, query string, topK int) ([]models.TranscriptChunk, error)
}

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatLLM drives one retrieval-augmented generation turn. onDelta is
// invoked for every text delta in order; returning an error from it
// aborts the stream.
type ChatLLM interface {
	StreamChat(ctx context.Context, systemPrompt string, history []models.ChatTurn, userMessage string, onDelta func(delta string) error) error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
