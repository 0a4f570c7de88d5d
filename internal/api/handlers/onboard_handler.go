package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/api/middlewares"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/core/onboarding"
)

type OnboardHandler struct {
	engine *onboarding.Engine
	log    zerolog.Logger
}

func NewOnboardHandler(engine *onboarding.Engine, log zerolog.Logger) *OnboardHandler {
	return &OnboardHandler{engine: engine, log: log.With().Str("handler", "onboard").Logger()}
}

type initiateRequest struct {
	ChannelID   string `json:"channel_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// InitiateRequest registers an onboarding request and queues it for the
// background workers. An already onboarded channel returns the request
// in the autocompleted state without queueing work.
func (h *OnboardHandler) InitiateRequest(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.RequestedBy == "" {
		req.RequestedBy = middleware.SessionID(r.Context())
	}

	created, err := h.engine.CreateRequest(r.Context(), req.ChannelID, req.RequestedBy)
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", req.ChannelID).Msg("request creation failed")
		http.Error(w, "request creation failed", statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type processRequest struct {
	RequestID string `json:"request_id"`
}

// ProcessRequest runs one queued request synchronously. A request that
// is missing or not queued answers 404, keeping the endpoint safe to
// call repeatedly against the same id.
func (h *OnboardHandler) ProcessRequest(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.engine.ProcessRequest(r.Context(), req.RequestID); err != nil {
		h.log.Error().Err(err).Str("request_id", req.RequestID).Msg("request processing failed")
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrInvalidState) {
			http.Error(w, fmt.Sprintf("onboarding request (%s) is not processable", req.RequestID), http.StatusNotFound)
			return
		}
		http.Error(w, "request processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Onboarding request successfully processed!",
		"request_id": req.RequestID,
	})
}

// SearchChannels proxies free-text channel search.
func (h *OnboardHandler) SearchChannels(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	region := r.URL.Query().Get("region")
	if region == "" {
		region = "US"
	}
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	channels, err := h.engine.SearchChannels(r.Context(), query, region, limit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("channel search failed")
		http.Error(w, "channel search failed", statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

type channelDetailsRequest struct {
	ChannelID string `json:"channel_id"`
}

// ChannelDetails returns channel metadata for the onboarding UI.
func (h *OnboardHandler) ChannelDetails(w http.ResponseWriter, r *http.Request) {
	var req channelDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ch, err := h.engine.ChannelDetails(r.Context(), req.ChannelID)
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", req.ChannelID).Msg("channel details lookup failed")
		http.Error(w, "channel not found", statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, ch)
}
