package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/donmai-me/cnquadtree/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestHandleWatch(t *testing.T) {
	api, mux := newTestAPI()

	server := httptest.NewServer(mux)
	defer server.Close()

	info := createTestTree(t, mux)
	handle, ok := api.Trees.Get(info.ID)
	require.True(t, ok)

	wsURL := strings.Replace(server.URL, "http", "ws", 1)

	conn, err := websocket.Dial(wsURL+"/trees/"+info.ID+"/watch", "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	// The watcher is registered by the server handler after the
	// handshake returns.
	require.Eventually(t, func() bool {
		return handle.WatcherCount() == 1
	}, time.Second, time.Millisecond*10)

	children, err := handle.Subdivide(handle.Root(), [4]models.Payload{})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*2)))

	var e models.TreeEvent
	require.NoError(t, websocket.JSON.Receive(conn, &e))
	require.Equal(t, models.TreeEvent{
		TreeID:   info.ID,
		Op:       models.TreeEventSubdivide,
		Index:    handle.Root(),
		Children: children[:],
	}, e)

	t.Run("watching an unknown tree fails the handshake", func(t *testing.T) {
		_, err := websocket.Dial(wsURL+"/trees/ee7715e1-5e43-41fc-a4f5-c5f9e01e90d8/watch", "", server.URL)
		require.Error(t, err)
	})

	t.Run("disconnecting removes the watcher", func(t *testing.T) {
		require.NoError(t, conn.Close())
		require.Eventually(t, func() bool {
			return handle.WatcherCount() == 0
		}, time.Second, time.Millisecond*10)
	})
}

func TestHandleWatchDisabledByFeatureFlag(t *testing.T) {
	_, mux := newTestAPI("DISABLE_TREE_WATCH")

	info := createTestTree(t, mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trees/"+info.ID+"/watch", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
