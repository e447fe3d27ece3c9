package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/pitchzone-be/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPitchUpdatedFansOut(t *testing.T) {
	hub, _ := startHub(t)

	watcher := NewClient(hub, nil, PitchTopic("p1"))
	other := NewClient(hub, nil, PitchTopic("p2"))
	global := NewClient(hub, nil, GlobalTopic)
	for _, c := range []*Client{watcher, other, global} {
		hub.Register(c)
	}

	hub.PitchUpdated(models.Pitch{ID: "p1", Title: "Solar kiosks"})

	for _, c := range []*Client{watcher, global} {
		msg := receive(t, c)
		if msg.Action != ActionPitchUpdated {
			t.Errorf("action = %q", msg.Action)
		}
		payload, _ := msg.Payload.(map[string]interface{})
		if payload["id"] != "p1" {
			t.Errorf("payload id = %v", payload["id"])
		}
	}
	expectSilence(t, other)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	hub, _ := startHub(t)

	c := NewClient(hub, nil, "")
	hub.Register(c)
	hub.Subscribe(c, PitchTopic("p1"))

	hub.PitchUpdated(models.Pitch{ID: "p1"})
	if msg := receive(t, c); msg.Action != ActionPitchUpdated {
		t.Fatalf("action = %q", msg.Action)
	}

	hub.Unsubscribe(c, PitchTopic("p1"))
	hub.PitchUpdated(models.Pitch{ID: "p1"})
	expectSilence(t, c)
}

func TestReplyReachesOnlyThatClient(t *testing.T) {
	hub, _ := startHub(t)

	a := NewClient(hub, nil, GlobalTopic)
	b := NewClient(hub, nil, GlobalTopic)
	hub.Register(a)
	hub.Register(b)

	a.Reply(NewErrorMessage("Unknown action"))
	if msg := receive(t, a); msg.Action != ActionError {
		t.Errorf("action = %q", msg.Action)
	}
	expectSilence(t, b)
}

func TestUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	c := NewClient(hub, nil, GlobalTopic)
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("unexpected message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}

	// A second unregister is a no-op.
	hub.Unregister(c)
}

func TestRunStopsWithContext(t *testing.T) {
	hub, cancel := startHub(t)

	c := NewClient(hub, nil, GlobalTopic)
	hub.Register(c)
	cancel()

	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.Send; ok {
		t.Error("client channel left open")
	}

	// Calls after shutdown must not block.
	hub.Register(NewClient(hub, nil, GlobalTopic))
	hub.PitchUpdated(models.Pitch{ID: "p1"})
}
