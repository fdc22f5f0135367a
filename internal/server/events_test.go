package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/session"
)

func dialEvents(t *testing.T, ts *httptest.Server, sid, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + sid + "/events"
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) session.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev session.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func post(t *testing.T, ts *httptest.Server, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEvents_StreamsSessionEvents(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	token, _ := e.login(t, "alice@example.com")
	sid := e.createSession(t, token)
	conn := dialEvents(t, ts, sid, token)

	snap := readEvent(t, conn)
	assert.Equal(t, EventSnapshot, snap.Kind)
	assert.Equal(t, model.StateSelecting, snap.State)
	require.NotNil(t, snap.Usage)
	assert.Equal(t, 2, snap.Usage.Remaining)

	resp := post(t, ts, "/api/sessions/"+sid+"/selection", token, selectRequest{ID: "porsche-911-turbo-s"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ev := readEvent(t, conn)
	assert.Equal(t, session.EventSelectionChanged, ev.Kind)
	require.Len(t, ev.Selection, 1)
	assert.Equal(t, "porsche-911-turbo-s", ev.Selection[0].ID)

	resp = post(t, ts, "/api/sessions/"+sid+"/selection", token, selectRequest{ID: "ferrari-f8-tributo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.EventSelectionChanged, readEvent(t, conn).Kind)

	resp = post(t, ts, "/api/sessions/"+sid+"/compare", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	ev = readEvent(t, conn)
	assert.Equal(t, session.EventViewStateChanged, ev.Kind)
	assert.Equal(t, model.StateAnalyzing, ev.State)

	ev = readEvent(t, conn)
	assert.Equal(t, session.EventComparisonReady, ev.Kind)
	require.NotNil(t, ev.Result)
	assert.Equal(t, "ferrari-f8-tributo", ev.Result.Ranking[0].ID)

	ev = readEvent(t, conn)
	assert.Equal(t, session.EventViewStateChanged, ev.Kind)
	assert.Equal(t, model.StateShowingResults, ev.State)
	require.NotNil(t, ev.Usage)
	assert.Equal(t, 1, ev.Usage.Count)
}

func TestEvents_AuthRequiredEvent(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	sid := e.createSession(t, "")
	conn := dialEvents(t, ts, sid, "")
	assert.Equal(t, EventSnapshot, readEvent(t, conn).Kind)

	for _, id := range []string{"porsche-911-turbo-s", "ferrari-f8-tributo"} {
		post(t, ts, "/api/sessions/"+sid+"/selection", "", selectRequest{ID: id})
		readEvent(t, conn)
	}
	resp := post(t, ts, "/api/sessions/"+sid+"/compare", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, session.EventAuthRequired, readEvent(t, conn).Kind)
}

func TestEvents_Rejections(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/missing/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	token, _ := e.login(t, "alice@example.com")
	sid := e.createSession(t, token)
	url = "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + sid + "/events"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEvents_StreamKeepsSessionAlive(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	sid := e.createSession(t, "")
	conn := dialEvents(t, ts, sid, "")
	require.Equal(t, EventSnapshot, readEvent(t, conn).Kind)

	reg := e.srv.Sessions()
	later := time.Now().Add(2 * time.Hour)
	reg.mu.Lock()
	reg.now = func() time.Time { return later }
	reg.mu.Unlock()

	assert.Zero(t, reg.Sweep(time.Minute))
	_, _, ok := reg.Get(sid)
	assert.True(t, ok)
}
