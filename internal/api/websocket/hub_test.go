// internal/api/websocket/hub_test.go
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

type received struct {
	Type MessageType `json:"type"`
	Data struct {
		Generation uint64 `json:"generation"`
		Health     string `json:"health"`
		LastError  string `json:"last_error"`
		Values     []struct {
			Address registers.Address `json:"address"`
			Value   any               `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(nil)
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(h, w, r, NewMessage(MessageTypeSnapshot, status.Document{Health: "unknown"}))
	}))

	t.Cleanup(func() {
		srv.Close()
		h.Stop()
		<-h.Done()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m received
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestServeWs_InitialMessageFirst(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)

	m := readMsg(t, conn)
	assert.Equal(t, MessageTypeSnapshot, m.Type)
	assert.Equal(t, "unknown", m.Data.Health)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h, srv := startHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	readMsg(t, a)
	readMsg(t, b)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	h.Broadcast(NewMessage(MessageTypePollFailed, status.Document{Health: "stale"}))

	for _, conn := range []*websocket.Conn{a, b} {
		m := readMsg(t, conn)
		assert.Equal(t, MessageTypePollFailed, m.Type)
		assert.Equal(t, "stale", m.Data.Health)
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)
	readMsg(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)
	readMsg(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Stop()
	<-h.Done()
	assert.Zero(t, h.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	assert.True(t, errors.As(err, &closeErr))
}

func TestForward_BroadcastsStoreEventsInOrder(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)
	readMsg(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	tbl, err := registers.NewTable([]registers.Spec{{Address: 33, Name: "Battery SOC", Unit: "%", Scale: 1}})
	require.NoError(t, err)

	store := status.NewStore()
	sub := store.Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		Forward(ctx, sub, h, tbl)
	}()

	store.Publish(registers.Values{33: {Kind: registers.KindNumber, Raw: 80, Number: 80}}, time.Now())
	store.RecordFailure(errors.New("timeout"), time.Now())

	m := readMsg(t, conn)
	assert.Equal(t, MessageTypeSnapshotPublished, m.Type)
	assert.Equal(t, uint64(1), m.Data.Generation)
	assert.Equal(t, "ok", m.Data.Health)
	require.Len(t, m.Data.Values, 1)
	assert.Equal(t, registers.Address(33), m.Data.Values[0].Address)
	assert.Equal(t, 80.0, m.Data.Values[0].Value)

	m = readMsg(t, conn)
	assert.Equal(t, MessageTypePollFailed, m.Type)
	assert.Equal(t, "stale", m.Data.Health)
	assert.Equal(t, "timeout", m.Data.LastError)

	// closing the store ends the feed
	store.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return after store close")
	}
}
