package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait = 5 * time.Second
	streamPongWait  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *nethttp.Request) bool {
		return true
	},
}

// handleStream pushes a Diagnostics frame every interval until the client
// goes away. Incoming messages are read only to notice the close.
func (h *handler) handleStream(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[net] diagnostics upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if !h.pushFrame(conn) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !h.pushFrame(conn) {
				return
			}
		}
	}
}

func (h *handler) pushFrame(conn *websocket.Conn) bool {
	data, err := json.Marshal(h.diagnostics())
	if err != nil {
		h.logger.Printf("[net] failed to marshal diagnostics frame: %v", err)
		return true
	}
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	return true
}
