package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Source yields one raw message per call. Next returns io.EOF when the feed
// ends cleanly.
type Source interface {
	Next() (string, error)
	Close() error
}

// DialFunc opens a new Source.
type DialFunc func(ctx context.Context) (Source, error)

type lineSource struct {
	sc *bufio.Scanner
	c  io.Closer
}

// NewLineSource reads newline separated messages from r. Closing the source
// closes r when it is an io.Closer.
func NewLineSource(r io.Reader) Source {
	c, _ := r.(io.Closer)
	return &lineSource{sc: bufio.NewScanner(r), c: c}
}

func (s *lineSource) Next() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *lineSource) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// DialFile replays a recorded feed from path.
func DialFile(path string) DialFunc {
	return func(context.Context) (Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
		}
		return NewLineSource(f), nil
	}
}

const closeGrace = time.Second

type wsSource struct {
	conn *websocket.Conn
}

// DialWebSocket connects to the tracker bridge, e.g. ws://localhost:8081.
// Each text or binary frame is one message.
func DialWebSocket(url string) DialFunc {
	return func(ctx context.Context) (Source, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("telemetry: dial %s: %s: %w", url, resp.Status, err)
			}
			return nil, fmt.Errorf("telemetry: dial %s: %w", url, err)
		}
		return &wsSource{conn: conn}, nil
	}
}

func (s *wsSource) Next() (string, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return "", io.EOF
		}
		return "", err
	}
	return string(data), nil
}

func (s *wsSource) Close() error {
	// Best effort; the peer may already be gone.
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeGrace))
	return s.conn.Close()
}
