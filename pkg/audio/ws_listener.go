package audio

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vokal-ai/vokal/pkg/logging"
)

// WebsocketListener runs a small HTTP endpoint where a remote client streams
// its microphone over a websocket. Whichever client is connected feeds a
// shared frame stream; capture sessions attach and detach from that stream
// without dropping the client connection.
type WebsocketListener struct {
	addr string
	path string

	upgrader websocket.Upgrader
	frames   chan Frame
	logger   *slog.Logger

	startOnce sync.Once
	startErr  error
	srv       *http.Server
	boundAddr string

	mu   sync.Mutex
	stop chan struct{}
}

func NewWebsocketListener(addr, path string) *WebsocketListener {
	if addr == "" {
		addr = "127.0.0.1:8090"
	}
	if path == "" {
		path = "/audio"
	}
	return &WebsocketListener{
		addr:     addr,
		path:     path,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		frames:   make(chan Frame, 32),
		logger:   logging.NewComponentLogger(slog.Default(), "ws_listener"),
	}
}

func (l *WebsocketListener) ensureServer() error {
	l.startOnce.Do(func() {
		ln, err := net.Listen("tcp", l.addr)
		if err != nil {
			l.startErr = err
			return
		}
		mux := http.NewServeMux()
		mux.HandleFunc(l.path, l.handle)
		l.srv = &http.Server{Handler: mux}
		l.boundAddr = ln.Addr().String()
		go func() {
			if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.logger.Error("ws_listener_error", "error", err.Error())
			}
		}()
		l.logger.Info("ws_listener_ready", "addr", ln.Addr().String(), "path", l.path)
	})
	return l.startErr
}

func (l *WebsocketListener) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("ws_upgrade_error", "error", err.Error())
		return
	}
	l.logger.Info("ws_client_connected", "remote", conn.RemoteAddr().String())

	src := NewWebsocketSource(conn)
	frames, err := src.Start(r.Context())
	if err != nil {
		_ = src.Close()
		return
	}
	for f := range frames {
		// Drop frames when no capture session is attached; a remote client
		// keeps streaming regardless of turn state.
		select {
		case l.frames <- f:
		default:
		}
	}
	_ = src.Close()
	l.logger.Info("ws_client_disconnected", "remote", conn.RemoteAddr().String())
}

// Addr reports the bound listen address once the server is up.
func (l *WebsocketListener) Addr() string {
	return l.boundAddr
}

// Start attaches a capture session to the shared frame stream, booting the
// HTTP listener on first use.
func (l *WebsocketListener) Start(ctx context.Context) (<-chan Frame, error) {
	if err := l.ensureServer(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return nil, errors.New("audio session already attached")
	}
	stop := make(chan struct{})
	l.stop = stop
	l.mu.Unlock()

	out := make(chan Frame, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case f := <-l.frames:
				select {
				case out <- f:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
		}
	}()
	return out, nil
}

// Close detaches the current capture session. The client connection and the
// HTTP listener stay up for the next session.
func (l *WebsocketListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	return nil
}

// Shutdown tears down the HTTP listener.
func (l *WebsocketListener) Shutdown(ctx context.Context) error {
	if l.srv == nil {
		return nil
	}
	return l.srv.Shutdown(ctx)
}
