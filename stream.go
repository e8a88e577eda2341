package main

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler hands the connection to the conductor, which pushes state
// snapshots and accepts commands until the client goes away.
func StreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ENV.Logger.Warnw("stream upgrade failed", "error", err)
		return
	}
	ENV.Conductor.Serve(conn)
}
