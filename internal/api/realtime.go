package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/wellness-hub/internal/realtime"
)

const realtimeWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// origins are enforced by the api key, not the browser origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RealtimeMessage is exchanged over the realtime websocket.
// Clients send "subscribe" (with Topics) and "ping"; the server sends
// "connected", "subscribed", "change" (with Event), "pong" and "error".
type RealtimeMessage struct {
	Type   string          `json:"type"`
	Topics []string        `json:"topics,omitempty"`
	Event  *realtime.Event `json:"event,omitempty"`
	Data   string          `json:"data,omitempty"`
}

func (s *Server) handleRealtimeWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "realtime feed disabled")
		return
	}

	var topics []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		topics = strings.Split(raw, ",")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(topics...)
	defer sub.Close()

	client := ClientFromContext(r.Context())
	slog.Info("realtime websocket connected", "client", client.Name, "topics", topics)

	if err := sendRealtimeMessage(conn, RealtimeMessage{Type: "connected", Topics: topics}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replies := make(chan RealtimeMessage, 4)
	var wg sync.WaitGroup

	// Hub events and replies -> WebSocket. This is the only writer.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			var msg RealtimeMessage
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				msg = RealtimeMessage{Type: "change", Event: &ev}
			case msg = <-replies:
			}
			if err := sendRealtimeMessage(conn, msg); err != nil {
				return
			}
		}
	}()

	// WebSocket -> subscription changes
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg RealtimeMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				slog.Debug("invalid message format", "error", err)
				continue
			}

			var reply RealtimeMessage
			switch msg.Type {
			case "subscribe":
				sub.SetTopics(msg.Topics)
				reply = RealtimeMessage{Type: "subscribed", Topics: msg.Topics}
			case "ping":
				reply = RealtimeMessage{Type: "pong"}
			default:
				reply = RealtimeMessage{Type: "error", Data: "unknown message type: " + msg.Type}
			}

			select {
			case replies <- reply:
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	// unblock the reader
	conn.Close()
	wg.Wait()
	slog.Info("realtime websocket disconnected", "client", client.Name)
}

func sendRealtimeMessage(conn *websocket.Conn, msg RealtimeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal realtime message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send realtime message", "error", err)
		return err
	}
	return nil
}
