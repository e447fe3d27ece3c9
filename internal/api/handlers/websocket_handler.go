package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	ws "github.com/isdelr/pitchzone-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades connections to the live funding feed.
type WebSocketHandler struct {
	hub     *ws.Hub
	pitches services.PitchServiceProvider
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, pitches services.PitchServiceProvider) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, pitches: pitches}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed is public and read-only.
		return true
	},
}

// ServePitch streams updates of a single pitch.
func (h *WebSocketHandler) ServePitch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.pitches.GetPitchDetails(r.Context(), id); err != nil {
		response.Error(w, r, err)
		return
	}
	h.serve(w, r, ws.PitchTopic(id))
}

// ServeGlobal streams updates of every pitch.
func (h *WebSocketHandler) ServeGlobal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, ws.GlobalTopic)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, topic)
	h.hub.Register(client)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump(h.handleIncomingWSMessage)
	}()

	// Cleanup on disconnect.
	go func() {
		wg.Wait()
		h.hub.Unregister(client)
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		client.Reply(ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case ws.ActionSubscribe, ws.ActionUnsubscribe:
		payload, _ := msg.Payload.(map[string]interface{})
		pitchID, _ := payload["pitchId"].(string)
		if pitchID == "" {
			client.Reply(ws.NewErrorMessage("pitchId is required"))
			return
		}
		if msg.Action == ws.ActionSubscribe {
			h.hub.Subscribe(client, ws.PitchTopic(pitchID))
			client.Reply(ws.NewTopicMessage(ws.ActionSubscribed, pitchID))
		} else {
			h.hub.Unsubscribe(client, ws.PitchTopic(pitchID))
			client.Reply(ws.NewTopicMessage(ws.ActionUnsubscribed, pitchID))
		}

	case ws.ActionPing:
		client.Reply(ws.NewPongMessage())

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}
