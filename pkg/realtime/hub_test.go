package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub(Options{})

	c1 := h.Register("smash")
	c2 := h.Register("smash")
	c3 := h.Register("melee")

	if h.ClientCount("smash") != 2 || h.ClientCount("melee") != 1 {
		t.Fatalf("counts = %d, %d; want 2, 1", h.ClientCount("smash"), h.ClientCount("melee"))
	}

	h.Unregister(c1)
	h.Unregister(c1) // second call is a no-op
	if h.ClientCount("smash") != 1 {
		t.Fatalf("smash count = %d after unregister, want 1", h.ClientCount("smash"))
	}
	if _, ok := <-c1.Messages(); ok {
		t.Error("unregistered client channel should be closed")
	}

	h.Unregister(c2)
	h.Unregister(c3)
	if h.ClientCount("smash") != 0 || h.ClientCount("melee") != 0 {
		t.Error("expected no clients after full unregister")
	}
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(Options{})
	smash := h.Register("smash")
	melee := h.Register("melee")

	delivered, dropped := h.Broadcast(context.Background(), Event{
		Type:        EventLayoutSaved,
		CommunityID: "smash",
		Data:        LayoutSaved{Version: 3, Widgets: 2},
	})
	if delivered != 1 || dropped != 0 {
		t.Fatalf("Broadcast() = %d, %d; want 1, 0", delivered, dropped)
	}

	select {
	case msg := <-smash.Messages():
		var got struct {
			Type string      `json:"type"`
			Data LayoutSaved `json:"data"`
		}
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Type != EventLayoutSaved || got.Data.Version != 3 {
			t.Errorf("message = %s", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("smash client did not receive the event")
	}

	select {
	case msg := <-melee.Messages():
		t.Errorf("melee client received %s", msg)
	default:
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub(Options{})
	h.Register("smash")

	ev := Event{Type: EventSaveFailed, CommunityID: "smash"}
	for range clientBuffer {
		h.Broadcast(context.Background(), ev)
	}
	delivered, dropped := h.Broadcast(context.Background(), ev)
	if delivered != 0 || dropped != 1 {
		t.Errorf("Broadcast() on a full buffer = %d, %d; want 0, 1", delivered, dropped)
	}
}

func TestHubSubscribe(t *testing.T) {
	h := NewHub(Options{})

	var mu sync.Mutex
	var got []Event
	cancel := h.Subscribe("smash", func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	ref := WidgetRef{Type: "youtube", ID: "7"}
	h.Broadcast(context.Background(), Event{Type: EventWidgetDeleted, CommunityID: "smash", Data: ref})
	h.Broadcast(context.Background(), Event{Type: EventWidgetDeleted, CommunityID: "melee", Data: ref})
	cancel()
	h.Broadcast(context.Background(), Event{Type: EventWidgetDeleted, CommunityID: "smash", Data: ref})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("subscriber saw %d events, want 1", len(got))
	}
	if r, ok := got[0].Data.(WidgetRef); !ok || r.Key().String() != "youtube:7" {
		t.Errorf("event data = %#v", got[0].Data)
	}
}

func TestServeWS(t *testing.T) {
	h := NewHub(Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "smash")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount("smash") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.Broadcast(context.Background(), Event{
		Type:        EventWidgetDeleted,
		CommunityID: "smash",
		Data:        WidgetRef{Type: "markdown", ID: "rules"},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type        string    `json:"type"`
		CommunityID string    `json:"community_id"`
		Data        WidgetRef `json:"data"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ev.Type != EventWidgetDeleted || ev.CommunityID != "smash" || ev.Data.ID != "rules" {
		t.Errorf("event = %+v", ev)
	}

	conn.Close()
	for h.ClientCount("smash") != 0 {
		if time.Now().After(deadline.Add(2 * time.Second)) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeWSRejectsOrigin(t *testing.T) {
	h := NewHub(Options{AllowedOrigins: []string{"https://fourbar.gg"}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "smash")
	}))
	defer srv.Close()

	header := http.Header{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err == nil {
		t.Fatal("Dial should fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}
