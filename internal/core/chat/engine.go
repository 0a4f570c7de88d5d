package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// Engine generates assistant turns with retrieval-augmented context.
// Callers are responsible for serializing messages to one chat; the
// engine does not lock per chat.
type Engine struct {
	db    core.DbClient
	index core.VectorIndex
	llm   core.ChatLLM
	topK  int
	log   zerolog.Logger
}

func NewEngine(db core.DbClient, index core.VectorIndex, llm core.ChatLLM, topK int, log zerolog.Logger) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		db:    db,
		index: index,
		llm:   llm,
		topK:  topK,
		log:   log.With().Str("component", "chat_engine").Logger(),
	}
}

// GenerateResponseStream drives one chat turn. emit receives a
// cumulative ASSISTANT snapshot after every delta; its content only
// grows, and the last invocation carries the COMPLETED snapshot after
// both turns are persisted. An emit error aborts the stream.
//
// History is written only at the end: USER then ASSISTANT on success,
// a single FAILED USER turn on any failure. A consumer that walks away
// mid-stream therefore never leaves a half-written conversation.
func (e *Engine) GenerateResponseStream(ctx context.Context, chat *models.Chat, userMessage string, emit func(models.ChatResponse) error) (*models.ChatResponse, error) {
	history, err := e.db.ListChatResponses(ctx, chat.ID, true)
	if err != nil {
		e.recordFailedTurn(ctx, chat.ID, userMessage, "history unavailable")
		return nil, fmt.Errorf("load history for chat %s: %w: %w", chat.ID, errs.ErrGenerationFailed, err)
	}

	chunks, err := e.index.Retrieve(ctx, chat.VectorNamespace, userMessage, e.topK)
	if err != nil {
		e.recordFailedTurn(ctx, chat.ID, userMessage, "retrieval unavailable")
		return nil, fmt.Errorf("retrieve context for chat %s: %w: %w", chat.ID, errs.ErrGenerationFailed, err)
	}
	e.log.Debug().Str("chat_id", chat.ID).Int("chunks", len(chunks)).Msg("retrieved context")

	turns := make([]models.ChatTurn, 0, len(history))
	for _, h := range history {
		turns = append(turns, models.ChatTurn{Role: h.Role, Content: h.Content})
	}

	snapshot := models.ChatResponse{
		ID:     uuid.NewString(),
		ChatID: chat.ID,
		Role:   models.RoleAssistant,
		Status: models.ResponseInProgress,
	}
	var full strings.Builder

	streamErr := e.llm.StreamChat(ctx, systemPrompt(chat.ChatMode, chunks), turns, userMessage, func(delta string) error {
		full.WriteString(delta)
		snapshot.Content = full.String()
		return emit(snapshot)
	})

	switch {
	case streamErr != nil && full.Len() == 0:
		e.recordFailedTurn(ctx, chat.ID, userMessage, "generation session failed to open")
		return nil, fmt.Errorf("chat %s: %w: %w", chat.ID, errs.ErrGenerationFailed, streamErr)
	case streamErr != nil:
		e.recordFailedTurn(ctx, chat.ID, userMessage, "exception raised")
		return nil, fmt.Errorf("chat %s stream aborted: %w", chat.ID, streamErr)
	case full.Len() == 0:
		e.recordFailedTurn(ctx, chat.ID, userMessage, "empty response")
		return nil, fmt.Errorf("chat %s produced no content: %w", chat.ID, errs.ErrGenerationFailed)
	}

	snapshot.Status = models.ResponseCompleted
	userTurn := models.ChatResponse{
		ID:      uuid.NewString(),
		ChatID:  chat.ID,
		Role:    models.RoleUser,
		Content: userMessage,
		Status:  models.ResponseCompleted,
	}
	if err := e.db.AppendChatResponses(ctx, chat.ID, []models.ChatResponse{userTurn, snapshot}); err != nil {
		return nil, fmt.Errorf("persist turn for chat %s: %w", chat.ID, err)
	}

	// The turn is committed; a consumer gone at this point only misses
	// the final frame.
	if err := emit(snapshot); err != nil {
		e.log.Debug().Err(err).Str("chat_id", chat.ID).Msg("consumer gone before final snapshot")
	}
	return &snapshot, nil
}

// GenerateResponse drains the stream internally and returns the final
// completed turn.
func (e *Engine) GenerateResponse(ctx context.Context, chat *models.Chat, userMessage string) (*models.ChatResponse, error) {
	return e.GenerateResponseStream(ctx, chat, userMessage, func(models.ChatResponse) error { return nil })
}

// recordFailedTurn preserves the user's message as a FAILED turn for
// audit. It never surfaces in history reads.
func (e *Engine) recordFailedTurn(ctx context.Context, chatID, userMessage, reason string) {
	turn := models.ChatResponse{
		ID:           uuid.NewString(),
		ChatID:       chatID,
		Role:         models.RoleUser,
		Content:      userMessage,
		Status:       models.ResponseFailed,
		StatusReason: reason,
	}
	if err := e.db.AppendChatResponses(ctx, chatID, []models.ChatResponse{turn}); err != nil {
		e.log.Error().Err(err).Str("chat_id", chatID).Msg("could not record failed turn")
	}
}
