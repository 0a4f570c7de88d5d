// Package chat owns conversations: creating them against active
// channels, binding anonymous sessions to them, reading completed
// history and driving retrieval-augmented response generation.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// DefaultMode is the retrieval-augmented mode every new chat starts in.
const DefaultMode = "context"

type Store struct {
	db        core.DbClient
	indexName string
	log       zerolog.Logger
}

func NewStore(db core.DbClient, indexName string, log zerolog.Logger) *Store {
	return &Store{
		db:        db,
		indexName: indexName,
		log:       log.With().Str("component", "chat_store").Logger(),
	}
}

// CreateChat opens a new conversation over the channel's indexed
// transcripts. The channel must exist and be ACTIVE.
func (s *Store) CreateChat(ctx context.Context, channelID string) (*models.Chat, error) {
	ch, err := s.db.GetChannelByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, errs.ErrNotFound)
	}
	if ch.Status != models.ChannelActive {
		return nil, fmt.Errorf("channel %s: %w", channelID, errs.ErrChannelNotActive)
	}

	chat := &models.Chat{
		ID:              uuid.NewString(),
		VectorIndexName: s.indexName,
		VectorNamespace: channelID,
		ChatMode:        DefaultMode,
	}
	if err := s.db.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("persist chat: %w", err)
	}
	s.log.Info().Str("chat_id", chat.ID).Str("channel_id", channelID).Msg("chat created")
	return chat, nil
}

// GetChat returns a chat by ID or errs.ErrNotFound.
func (s *Store) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat %s: %w", chatID, err)
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %s: %w", chatID, errs.ErrNotFound)
	}
	return chat, nil
}

// GetHistory returns the chat's COMPLETED turns in position order.
// Failed turns stay in storage but never surface here.
func (s *Store) GetHistory(ctx context.Context, chatID string) ([]models.ChatResponse, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	history, err := s.db.ListChatResponses(ctx, chatID, true)
	if err != nil {
		return nil, fmt.Errorf("load history for chat %s: %w", chatID, err)
	}
	return history, nil
}

// Bind records that a session's current chat for a channel is chatID.
// Bindings are insert-only; the newest one wins on resolve.
func (s *Store) Bind(ctx context.Context, sessionID, channelID, chatID string) error {
	err := s.db.InsertChatSession(ctx, &models.ChatSession{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ChannelID: channelID,
		ChatID:    chatID,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("bind session %s to chat %s: %w", sessionID, chatID, err)
	}
	return nil
}

// Resolve returns the chat currently bound to (sessionID, channelID),
// or errs.ErrNotFound when the session has no chat for that channel yet.
func (s *Store) Resolve(ctx context.Context, sessionID, channelID string) (string, error) {
	binding, err := s.db.LatestChatSession(ctx, sessionID, channelID)
	if err != nil {
		return "", fmt.Errorf("resolve chat for session %s: %w", sessionID, err)
	}
	if binding == nil {
		return "", fmt.Errorf("no active chat for session %s on channel %s: %w", sessionID, channelID, errs.ErrNotFound)
	}
	return binding.ChatID, nil
}
