package ws

import (
	"context"
	"testing"
	"time"

	"rps-duel-server/config"
	"rps-duel-server/duelerrors"
	"rps-duel-server/lobby"
	"rps-duel-server/session"
)

func TestHubSendDeliversToRegisteredClient(t *testing.T) {
	cfg := config.Defaults()
	h := NewHub(cfg, nil, nil)
	h.Registry = lobby.NewRegistry(cfg, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &Client{Hub: h, Send: make(chan []byte, 4), ConnID: "conn-a"}
	h.register <- c
	time.Sleep(10 * time.Millisecond)

	h.Send("conn-a", []byte(`{"type":"ping"}`))
	select {
	case data := <-c.Send:
		if string(data) != `{"type":"ping"}` {
			t.Fatalf("unexpected payload: %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("expected Send to deliver to the registered client")
	}
}

func TestHubSendToUnknownConnectionIsANoop(t *testing.T) {
	cfg := config.Defaults()
	h := NewHub(cfg, nil, nil)
	h.Registry = lobby.NewRegistry(cfg, h, nil)

	h.Send("nobody", []byte(`{"type":"ping"}`))
}

func TestHubUnregisterTriggersDisconnectHandling(t *testing.T) {
	cfg := config.Defaults()
	h := NewHub(cfg, nil, nil)
	h.Registry = lobby.NewRegistry(cfg, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	if _, err := h.Registry.Create("conn-a", "Alice", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	c := &Client{Hub: h, Send: make(chan []byte, 4), ConnID: "conn-a"}
	h.register <- c
	time.Sleep(10 * time.Millisecond)

	h.unregister <- c
	time.Sleep(10 * time.Millisecond)

	err := h.Registry.Dispatch("conn-a", session.Action{Type: session.ActionPreviewReady})
	if err != duelerrors.ErrLobbyNotFound {
		t.Fatalf("expected the connection index to be cleared after unregister, got %v", err)
	}
}
