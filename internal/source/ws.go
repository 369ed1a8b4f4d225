package source

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultReconnectBase = 1 * time.Second
	defaultReconnectMax  = 30 * time.Second
)

// WSSource receives raw output over a WebSocket, one or more lines per text
// message. It never writes to the connection.
type WSSource struct {
	URL           string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	Dialer        *websocket.Dialer
	Logger        *slog.Logger
}

func NewWSSource(url string, base, maxDelay time.Duration, logger *slog.Logger) *WSSource {
	return &WSSource{URL: url, ReconnectBase: base, ReconnectMax: maxDelay, Logger: logger}
}

func (s *WSSource) Name() string {
	return "ws:" + s.URL
}

// Run dials and reads until ctx is done, reconnecting with exponential
// backoff whenever the dial fails or the connection drops.
func (s *WSSource) Run(ctx context.Context, emit func(string)) error {
	base, maxDelay := s.ReconnectBase, s.ReconnectMax
	if base <= 0 {
		base = defaultReconnectBase
	}
	if maxDelay < base {
		maxDelay = max(base, defaultReconnectMax)
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	delay := base
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := dialer.DialContext(ctx, s.URL, nil)
		if err != nil {
			logger.Warn("ws dial failed", "url", s.URL, "err", err, "retry", delay)
		} else {
			logger.Info("ws connected", "url", s.URL)
			delay = base
			err = readMessages(ctx, conn, emit)
			logger.Warn("ws disconnected", "url", s.URL, "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}
}

func readMessages(ctx context.Context, conn *websocket.Conn, emit func(string)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			emit(line)
		}
	}
}
