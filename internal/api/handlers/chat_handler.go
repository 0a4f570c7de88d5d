package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/api/middlewares"
	"github.com/markdave123-py/TubeSage/internal/core/chat"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

type ChatHandler struct {
	store  *chat.Store
	engine *chat.Engine
	log    zerolog.Logger
}

func NewChatHandler(store *chat.Store, engine *chat.Engine, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{store: store, engine: engine, log: log.With().Str("handler", "chat").Logger()}
}

type chatChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

type chatMessageRequest struct {
	ChatID      string `json:"chat_id"`
	UserMessage string `json:"user_message"`
}

// Initiate creates a chat for a channel, binds it to the caller's
// session and returns the chat id.
func (h *ChatHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req chatChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	created, err := h.store.CreateChat(r.Context(), req.ChannelID)
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", req.ChannelID).Msg("chat creation failed")
		http.Error(w, "chat creation failed", statusForError(err))
		return
	}

	sessionID := middleware.SessionID(r.Context())
	if sessionID != "" {
		if err := h.store.Bind(r.Context(), sessionID, req.ChannelID, created.ID); err != nil {
			h.log.Error().Err(err).Str("chat_id", created.ID).Msg("session binding failed")
		}
	}
	writeJSON(w, http.StatusOK, created.ID)
}

// GetChatID resolves the caller's current chat for a channel. 404 tells
// the client to initiate one.
func (h *ChatHandler) GetChatID(w http.ResponseWriter, r *http.Request) {
	var req chatChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sessionID := middleware.SessionID(r.Context())
	chatID, err := h.store.Resolve(r.Context(), sessionID, req.ChannelID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "no active chat for this channel", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("channel_id", req.ChannelID).Msg("chat resolution failed")
		http.Error(w, "chat resolution failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chatID)
}

type chatHistoryRequest struct {
	ChatID string `json:"chat_id"`
}

// History returns the completed turns of a chat in order.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	var req chatHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	history, err := h.store.GetHistory(r.Context(), req.ChatID)
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", req.ChatID).Msg("history retrieval failed")
		http.Error(w, "chat history retrieval failed", statusForError(err))
		return
	}
	if history == nil {
		history = []models.ChatResponse{}
	}
	writeJSON(w, http.StatusOK, history)
}

// MessageStream answers one user message as a server-sent event stream
// of cumulative assistant snapshots. The final event carries the
// completed turn; each event's content supersedes the previous one.
func (h *ChatHandler) MessageStream(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || req.UserMessage == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	conversation, err := h.store.GetChat(r.Context(), req.ChatID)
	if err != nil {
		http.Error(w, "chat not found", statusForError(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sent := false
	_, err = h.engine.GenerateResponseStream(r.Context(), conversation, req.UserMessage, func(snapshot models.ChatResponse) error {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		sent = true
		return nil
	})
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", req.ChatID).Msg("chat response stream failed")
		if !sent {
			// Headers are already out; an SSE error event is the only
			// channel left to signal failure.
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", "chat response generation failed")
			flusher.Flush()
		}
	}
}

// Message is the non-streaming variant: same generation path, final
// completed turn only.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || req.UserMessage == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	conversation, err := h.store.GetChat(r.Context(), req.ChatID)
	if err != nil {
		http.Error(w, "chat not found", statusForError(err))
		return
	}

	final, err := h.engine.GenerateResponse(r.Context(), conversation, req.UserMessage)
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", req.ChatID).Msg("chat response failed")
		http.Error(w, "chat response generation failed", statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, final)
}
