package presence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

func newHubServer(t *testing.T) (*Hub, *Relay, *Directory, string) {
	t.Helper()
	hub := NewHub(HubOptions{SendBuffer: 8, PingInterval: time.Second, WriteWait: time.Second})
	dir := NewDirectory()
	relay, err := NewRelay(dir, hub, nil, nil)
	require.NoError(t, err)
	hub.Attach(relay)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := Principal{
			EntityID: r.URL.Query().Get("id"),
			Role:     enums.ActorRole(r.URL.Query().Get("role")),
		}
		_ = hub.Serve(w, r, principal)
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, relay, dir, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, id string, role enums.ActorRole) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url+"?id="+id+"&role="+role.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn, name string) Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var event Event
		require.NoError(t, ws.ReadJSON(&event))
		if event.Name == name {
			return event
		}
	}
}

func TestHubRegistersAndRoutes(t *testing.T) {
	hub, relay, dir, url := newHubServer(t)

	seller := dial(t, url, "s1", enums.ActorRoleSeller)
	require.NoError(t, seller.WriteJSON(Event{Name: EventAddSeller}))
	sellers := decodeSellers(t, readEvent(t, seller, EventActiveSellers))
	require.Len(t, sellers, 1)
	assert.Equal(t, "s1", sellers[0].EntityID)
	assert.Equal(t, 1, hub.Count())

	require.Eventually(t, func() bool {
		_, ok := dir.Seller("s1")
		return ok
	}, time.Second, 10*time.Millisecond)

	assert.True(t, relay.SendCustomerMessage(context.Background(), "s1", map[string]string{"message": "is this in stock?"}))
	event := readEvent(t, seller, EventCustomerMessage)
	assert.JSONEq(t, `{"message":"is this in stock?"}`, string(event.Data))
}

func TestHubDisconnectUnregisters(t *testing.T) {
	hub, _, dir, url := newHubServer(t)

	seller := dial(t, url, "s1", enums.ActorRoleSeller)
	require.NoError(t, seller.WriteJSON(Event{Name: EventAddSeller}))
	readEvent(t, seller, EventActiveSellers)

	require.NoError(t, seller.Close())
	require.Eventually(t, func() bool {
		_, ok := dir.Seller("s1")
		return !ok && hub.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubSendToUnknownConnection(t *testing.T) {
	hub := NewHub(HubOptions{})
	assert.ErrorIs(t, hub.Send("missing", Event{Name: EventSellerMessage}), ErrConnectionGone)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(HubOptions{SendBuffer: 1})
	c := &conn{id: "c", send: make(chan Event, 1)}
	hub.conns[c.id] = c

	require.NoError(t, hub.Send("c", Event{Name: "one"}))
	assert.ErrorIs(t, hub.Send("c", Event{Name: "two"}), ErrSendBufferFull)
}
