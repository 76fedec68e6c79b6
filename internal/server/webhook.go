package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sunrotstudios/velvet-metal/internal/shared"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
)

// Notifier is the dispatcher surface the webhook needs.
type Notifier interface {
	Notify(event tasks.ChangeEvent) bool
}

// WebhookHandler receives playlist-change notifications and enqueues
// reconciliations.
//
// The payload names either a sync pair directly or the playlist that changed:
//
//	{"pair_id": "..."}
//	{"service": "spotify", "playlist_id": "..."}
//
// A pair_id notification is validated against the registry first: 404 for an
// unknown pair, 409 when the pair has sync disabled. Accepted notifications
// answer 202; the reconciliation itself runs asynchronously.
type WebhookHandler struct {
	dispatcher Notifier
	pairs      tasks.PairStore
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(dispatcher Notifier, pairs tasks.PairStore) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, pairs: pairs}
}

func (h *WebhookHandler) Routes() []string {
	return []string{"/webhooks/playlist-change"}
}

type changePayload struct {
	PairID     string `json:"pair_id"`
	Service    string `json:"service"`
	PlaylistID string `json:"playlist_id"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload changePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	event := tasks.ChangeEvent{Service: payload.Service, PlaylistID: payload.PlaylistID}

	if payload.PairID != "" {
		pair, err := h.pairs.Get(payload.PairID)
		if errors.Is(err, shared.ErrPairNotFound) {
			http.Error(w, "Sync pair not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to load sync pair", http.StatusInternalServerError)
			return
		}
		if !pair.SyncEnabled() {
			http.Error(w, "Sync disabled for pair", http.StatusConflict)
			return
		}

		event = tasks.ChangeEvent{
			Service:    pair.SourceService(),
			PlaylistID: pair.SourcePlaylistID(),
		}
	} else if event.Service == "" || event.PlaylistID == "" {
		http.Error(w, "pair_id or service and playlist_id required", http.StatusBadRequest)
		return
	}

	if !h.dispatcher.Notify(event) {
		http.Error(w, "Event queue full", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
