package http

import (
	"io"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/donmai-me/cnquadtree/models"
	"golang.org/x/net/websocket"
)

// HandleWatch streams a tree's structural changes over a websocket, one
// JSON encoded TreeEvent per message. The tree is resolved before the
// websocket handshake so an unknown tree fails with a regular HTTP
// error.
func (a *API) HandleWatch() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle, err := a.treeHandle(r)
		if err != nil {
			writeError(w, err)
			return
		}

		websocket.Server{
			Handler: func(conn *websocket.Conn) {
				a.watch(conn, handle)
			},
		}.ServeHTTP(w, r)
	})
}

func (a *API) watch(conn *websocket.Conn, handle *models.TreeHandle) {
	defer conn.Close()

	id, events := handle.Watch()
	defer handle.Unwatch(id)

	ctx := conn.Request().Context()

	logs.WithTag("tree_id", handle.ID).
		WithTag("watcher_id", id).
		Debug("watcher connected")
	defer logs.WithTag("tree_id", handle.ID).
		WithTag("watcher_id", id).
		Debug("watcher disconnected")

	// The request context does not reliably report a hijacked
	// connection closing, so a read pump detects the disconnect.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		io.Copy(io.Discard, conn)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-disconnected:
			return

		case e, ok := <-events:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, e); err != nil {
				return
			}
		}
	}
}
