package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketSource adapts a websocket connection into a frame stream. Each
// binary message carries little-endian linear16 PCM; text messages are
// ignored. Useful when a remote client streams its microphone instead of a
// local device.
type WebsocketSource struct {
	conn        *websocket.Conn
	readTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewWebsocketSource(conn *websocket.Conn) *WebsocketSource {
	return &WebsocketSource{conn: conn, readTimeout: 30 * time.Second}
}

func (s *WebsocketSource) Start(ctx context.Context) (<-chan Frame, error) {
	out := make(chan Frame, 8)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			msgType, data, err := s.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Warn("ws_audio_read_error", "error", err.Error())
				}
				return
			}
			if msgType != websocket.BinaryMessage || len(data) < 2 {
				continue
			}
			select {
			case out <- NewFrame(BytesToSamples(data)):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *WebsocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}
