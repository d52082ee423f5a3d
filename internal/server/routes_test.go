package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

func newTestServer(t *testing.T, origins ...string) (*httptest.Server, context.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := signaling.NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(hub, origins, nil))
	t.Cleanup(srv.Close)
	return srv, ctx
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func next(t *testing.T, r *signaling.RemoteHub) signaling.HubMessage {
	t.Helper()
	select {
	case msg, ok := <-r.Incoming():
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub message")
		return nil
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebsocketSession(t *testing.T) {
	srv, ctx := newTestServer(t)

	a, err := signaling.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer a.Close()
	b, err := signaling.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Send(&signaling.JoinSession{SessionID: "s1", UserID: "u1", UserName: "Ada"}))
	assert.Empty(t, *next(t, a).(*signaling.ExistingParticipants))

	require.NoError(t, b.Send(&signaling.JoinSession{SessionID: "s1", UserID: "u2", UserName: "Bo"}))
	roster := next(t, b).(*signaling.ExistingParticipants)
	require.Len(t, *roster, 1)
	assert.Equal(t, "u1", (*roster)[0].UserID)

	joined := next(t, a).(*signaling.UserJoined)
	assert.Equal(t, "Bo", joined.UserName)

	require.NoError(t, a.Send(&signaling.Offer{To: joined.SocketID, Offer: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)}))
	offer := next(t, b).(*signaling.RelayedOffer)
	assert.Equal(t, (*roster)[0].SocketID, offer.From)

	require.NoError(t, b.Send(&signaling.ChatMessage{SessionID: "s1", Message: "hi"}))
	for _, r := range []*signaling.RemoteHub{a, b} {
		chat := next(t, r).(*signaling.ChatBroadcast)
		assert.Equal(t, "hi", chat.Message)
		assert.Equal(t, "u2", chat.UserID)
	}

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats signaling.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Rooms)
	assert.Equal(t, 2, stats.Members)

	// Dropping the socket is an implicit leave.
	require.NoError(t, b.Close())
	left := next(t, a).(*signaling.UserLeft)
	assert.Equal(t, "u2", left.UserID)
}

func TestOriginCheck(t *testing.T) {
	up := newUpgrader([]string{"https://study.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://study.example.com")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(req))

	assert.True(t, newUpgrader(nil).CheckOrigin(req))
}

type fakeHistory struct {
	msgs      []signaling.ChatBroadcast
	err       error
	lastLimit int64
}

func (f *fakeHistory) History(_ context.Context, sessionID string, limit int64) ([]signaling.ChatBroadcast, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []signaling.ChatBroadcast
	for _, m := range f.msgs {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestChatHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &fakeHistory{msgs: []signaling.ChatBroadcast{
		{ID: "m1", SessionID: "s1", Message: "first"},
		{ID: "m2", SessionID: "s2", Message: "elsewhere"},
		{ID: "m3", SessionID: "s1", Message: "second"},
	}}
	router := NewRouter(signaling.NewHub(), nil, history)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/history/s1")
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []signaling.ChatBroadcast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m3", msgs[1].ID)
	assert.Equal(t, int64(defaultHistoryLimit), history.lastLimit)

	require.Equal(t, http.StatusOK, get("/history/s1?limit=100000").Code)
	assert.Equal(t, int64(maxHistoryLimit), history.lastLimit)

	assert.Equal(t, http.StatusBadRequest, get("/history/s1?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get("/history/s1?limit=-1").Code)

	history.err = errors.New("redis down")
	assert.Equal(t, http.StatusServiceUnavailable, get("/history/s1").Code)
}

func TestHistoryRouteNeedsReader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(signaling.NewHub(), nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/s1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
