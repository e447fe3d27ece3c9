package websocket

import (
	"context"
	"encoding/json"

	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/rs/zerolog/log"
)

// GlobalTopic receives every pitch update.
const GlobalTopic = "global"

// PitchTopic is the topic carrying updates of one pitch.
func PitchTopic(pitchID string) string {
	return "pitch:" + pitchID
}

type subscription struct {
	client *Client
	topic  string
}

type publication struct {
	topic  string
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and fans out messages to the
// clients subscribed to a topic. All maps are owned by the Run loop.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of topics to the set of clients subscribed to it.
	topics map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan publication
	done        chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		topics:      make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan publication, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("Live feed hub stopped")
			return
		case client := <-h.register:
			h.clients[client] = true
			if client.Topic != "" {
				h.addSubscription(client, client.Topic)
			}
			log.Debug().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				log.Debug().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if h.clients[sub.client] {
				h.addSubscription(sub.client, sub.topic)
			}
		case sub := <-h.unsubscribe:
			if subs, ok := h.topics[sub.topic]; ok {
				delete(subs, sub.client)
				if len(subs) == 0 {
					delete(h.topics, sub.topic)
				}
			}
		case pub := <-h.publish:
			if pub.client != nil {
				if h.clients[pub.client] {
					h.deliver(pub.client, pub.data)
				}
				continue
			}
			for client := range h.topics[pub.topic] {
				h.deliver(client, pub.data)
			}
		}
	}
}

// Register adds a client and subscribes it to its initial topic.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Subscribe adds the client to topic.
func (h *Hub) Subscribe(c *Client, topic string) {
	select {
	case h.subscribe <- subscription{client: c, topic: topic}:
	case <-h.done:
	}
}

// Unsubscribe removes the client from topic.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	select {
	case h.unsubscribe <- subscription{client: c, topic: topic}:
	case <-h.done:
	}
}

// Publish queues msg for every client subscribed to topic. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Publish(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", msg.Action).Msg("Failed to encode live feed message")
		return
	}
	select {
	case h.publish <- publication{topic: topic, data: data}:
	default:
		log.Warn().Str("topic", topic).Msg("Live feed queue full, dropping message")
	}
}

// PitchUpdated pushes the pitch to its own topic and to the global feed.
func (h *Hub) PitchUpdated(p models.Pitch) {
	msg := NewPitchUpdatedMessage(p)
	h.Publish(PitchTopic(p.ID), msg)
	h.Publish(GlobalTopic, msg)
}

// direct queues data for a single client.
func (h *Hub) direct(c *Client, data []byte) {
	select {
	case h.publish <- publication{client: c, data: data}:
	case <-h.done:
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		// Slow consumer.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	for topic, subs := range h.topics {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}
