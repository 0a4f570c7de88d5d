package models

import (
	"time"
)

// Thumbnail is one rendition of a channel's thumbnail image.
type Thumbnail struct {
	URL    string `db:"url" json:"url"`
	Width  int    `db:"width" json:"width"`
	Height int    `db:"height" json:"height"`
}

// Channel represents a YouTube channel known to the system.
// A channel is ACTIVE only after at least one video with a non-empty
// transcript has been indexed for it.
type Channel struct {
	ID          string        `db:"id" json:"id"` // platform-native channel id
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	URL         string        `db:"url" json:"url"`
	Thumbnails  []Thumbnail   `db:"thumbnails" json:"thumbnails"`
	Status      ChannelStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// TranscriptSegment is one timed unit of a video transcript.
// Ordering within a video is by start offset.
type TranscriptSegment struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Chapter string `json:"chapter,omitempty"`
}

// Video exists only during one onboarding pass; it is never persisted
// beyond ingestion.
type Video struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	ChannelID   string              `json:"channel_id"`
	DurationSec int                 `json:"duration_sec"`
	Transcript  []TranscriptSegment `json:"transcript,omitempty"`
}

// OnboardingRequest tracks the lifecycle of a single channel onboarding.
// Once in a terminal status it is never mutated again.
type OnboardingRequest struct {
	ID          string           `db:"id" json:"id"`
	ChannelID   string           `db:"channel_id" json:"channel_id"`
	RequestedBy string           `db:"requested_by" json:"requested_by,omitempty"`
	Status      OnboardingStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Chat is one conversation bound to a channel's vector namespace.
type Chat struct {
	ID              string    `db:"id" json:"id"`
	VectorIndexName string    `db:"vector_index_name" json:"vector_index_name"`
	VectorNamespace string    `db:"vector_namespace" json:"vector_namespace"` // = channel id
	ChatMode        string    `db:"chat_mode" json:"chat_mode"`
	Expired         bool      `db:"expired" json:"expired"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ChatResponse is one turn (user or assistant) in a chat's history.
// History reads expose only COMPLETED turns; FAILED turns are retained
// for audit but never returned.
type ChatResponse struct {
	ID           string             `db:"id" json:"id"`
	ChatID       string             `db:"chat_id" json:"chat_id"`
	Role         MessageRole        `db:"role" json:"role"`
	Content      string             `db:"content" json:"content"`
	Status       ChatResponseStatus `db:"status" json:"status"`
	StatusReason string             `db:"status_reason" json:"status_reason,omitempty"`
	Position     int                `db:"position" json:"position"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// ChatSession maps an anonymous browser session to its most recent chat
// for a channel. Rows are insert-only; the newest row per
// (session_id, channel_id) is authoritative.
type ChatSession struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	ChatID    string    `db:"chat_id" json:"chat_id"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// User is an anonymous visitor identified by its session token.
type User struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	ChannelIDs []string  `db:"channel_ids" json:"channel_ids"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Document is one retrievable unit handed to the vector index:
// a video's concatenated transcript plus identifying metadata.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// TranscriptChunk is one embedded slice of an indexed document,
// tagged with the namespace (channel id) it belongs to.
type TranscriptChunk struct {
	ID           string    `db:"id" json:"id"`
	Namespace    string    `db:"namespace" json:"namespace"`
	VideoID      string    `db:"video_id" json:"video_id"`
	VideoTitle   string    `db:"video_title" json:"video_title"`
	ChannelTitle string    `db:"channel_title" json:"channel_title"`
	Position     int       `db:"position" json:"position"`
	Text         string    `db:"text" json:"text"`
	Embedding    []float32 `db:"embedding" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ChatTurn is the role/content pair fed to the generation backend.
type ChatTurn struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// VideoItem is one entry of a channel's video listing as returned by
// the platform, before transcripts are fetched. Duration is the
// platform's colon-separated form (e.g. "1:02:45").
type VideoItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

// TranscriptTier is the priority class of a transcript source.
// Selection order is always manual > generated > translated.
type TranscriptTier string

const (
	TierManual     TranscriptTier = "manual"
	TierGenerated  TranscriptTier = "generated"
	TierTranslated TranscriptTier = "translated"
)

// TranscriptCatalog lists the language codes available per tier for one
// video, in the order the platform reported them.
type TranscriptCatalog struct {
	Manual       []string `json:"manual"`
	Generated    []string `json:"generated"`
	Translatable []string `json:"translatable"`
}

// TranscriptHandle identifies one concrete transcript track to fetch.
type TranscriptHandle struct {
	VideoID  string         `json:"video_id"`
	Language string         `json:"language"`
	Tier     TranscriptTier `json:"tier"`
}
