// Package ws provides a WebSocket client for the dayplan gateway event
// stream.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/dohr-michael/dayplan/internal/events"
	wsprotocol "github.com/dohr-michael/dayplan/internal/gateway/ws"
)

// Client is a WebSocket client for the dayplan gateway.
type Client struct {
	conn   *websocket.Conn
	reqSeq uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// EventsURL derives the websocket endpoint from the gateway base URL.
func EventsURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/events"
}

// Dial connects to the gateway event stream, authenticating with token.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// Request sends a request frame and returns its id.
func (c *Client) Request(method wsprotocol.Method, params any) (string, error) {
	seq := atomic.AddUint64(&c.reqSeq, 1)

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return "", err
		}
		raw = data
	}

	frame := wsprotocol.Frame{
		Type:   wsprotocol.FrameTypeRequest,
		ID:     fmt.Sprintf("req-%d", seq),
		Method: string(method),
		Params: raw,
	}

	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return "", err
	}
	return frame.ID, c.conn.Write(c.ctx, websocket.MessageText, data)
}

// ReadFrame reads the next frame from the connection.
func (c *Client) ReadFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.UnmarshalFrame(data)
}

// ReadEvent skips response frames and returns the next pushed event.
func (c *Client) ReadEvent() (events.Event, error) {
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return events.Event{}, err
		}
		if f.Type != wsprotocol.FrameTypeEvent {
			continue
		}
		var e events.Event
		if err := json.Unmarshal(f.Payload, &e); err != nil {
			return events.Event{}, fmt.Errorf("decode event %s: %w", f.Event, err)
		}
		return e, nil
	}
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
