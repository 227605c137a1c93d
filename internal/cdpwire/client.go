// Package cdpwire implements the WebSocket JSON-RPC 2.0 transport for the
// Chrome DevTools Protocol: framing, request/response correlation by
// monotonically increasing id, and per (sessionId, method) event dispatch.
// It knows nothing about Page, DOM, Runtime or any other CDP domain; those
// live in package domains, one level up.
package cdpwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Errors returned by the transport itself, independent of any CDP-level
// protocol error.
var (
	ErrClosed  = errors.New("cdpwire: connection closed")
	ErrNoReply = errors.New("cdpwire: no response received")
)

// ProtocolError is a CDP-level error: the browser rejected a command.
type ProtocolError struct {
	Method  string
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cdp method %s: error %d: %s", e.Method, e.Code, e.Message)
}

// Client multiplexes one WebSocket connection to a single browser-level
// debugging endpoint across many flattened target sessions.
type Client struct {
	conn      *websocket.Conn
	url       string
	writeMu   sync.Mutex
	messageID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan rawResult

	handlersMu sync.Mutex
	handlers   map[string][]chan json.RawMessage

	closed    atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{}
}

type rawResult struct {
	result json.RawMessage
	err    *ProtocolError
}

type request struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type response struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *protoErrorWire `json:"error,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type protoErrorWire struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Dial opens the debugger WebSocket endpoint and starts the read loop.
// wsURL is the `webSocketDebuggerUrl` reported by the browser's
// `/json/version` HTTP endpoint.
func Dial(ctx context.Context, wsURL string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cdpwire: dialing %s: %w", wsURL, err)
	}

	c := &Client{
		conn:     conn,
		url:      wsURL,
		pending:  make(map[int64]chan rawResult),
		handlers: make(map[string][]chan json.RawMessage),
		closeCh:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// DiscoverWebSocketURL fetches http://host:port/json/version and returns
// the browser-level debugger WebSocket URL.
func DiscoverWebSocketURL(ctx context.Context, host string, port int) (string, error) {
	endpoint := fmt.Sprintf("http://%s:%d/json/version", host, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdpwire: contacting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var body struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("cdpwire: decoding version response: %w", err)
	}
	if body.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("cdpwire: %s did not report a webSocketDebuggerUrl", endpoint)
	}
	return body.WebSocketDebuggerURL, nil
}

// URL returns the WebSocket URL this client is connected to.
func (c *Client) URL() string { return c.url }

// Closed reports whether Close has run.
func (c *Client) Closed() bool { return c.closed.Load() }

// Close tears down the connection and wakes every pending caller.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		err = c.conn.Close()

		c.pendingMu.Lock()
		for _, ch := range c.pending {
			close(ch)
		}
		c.pending = make(map[int64]chan rawResult)
		c.pendingMu.Unlock()
	})
	return err
}

// Call issues a browser-level command (no session, e.g. Target.* methods).
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.call(ctx, "", method, params)
}

// CallSession issues a command flattened onto a specific target session.
func (c *Client) CallSession(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	return c.call(ctx, sessionID, method, params)
}

func (c *Client) call(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	id := c.messageID.Add(1)
	req := request{ID: id, SessionID: sessionID, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("cdpwire: marshaling params for %s: %w", method, err)
		}
		req.Params = data
	}

	replyCh := make(chan rawResult, 1)
	c.pendingMu.Lock()
	c.pending[id] = replyCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("cdpwire: writing %s: %w", method, err)
	}

	select {
	case res, ok := <-replyCh:
		if !ok {
			return nil, ErrClosed
		}
		if res.err != nil {
			res.err.Method = method
			return nil, res.err
		}
		return res.result, nil
	case <-c.closeCh:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers a buffered channel that receives every event whose
// (sessionID, method) matches. sessionID is empty for browser-level events.
// The caller must eventually call Unsubscribe with the same channel.
func (c *Client) Subscribe(sessionID, method string) chan json.RawMessage {
	ch := make(chan json.RawMessage, 256)
	key := eventKey(sessionID, method)

	c.handlersMu.Lock()
	c.handlers[key] = append(c.handlers[key], ch)
	c.handlersMu.Unlock()
	return ch
}

// Unsubscribe removes a previously registered channel and closes it.
func (c *Client) Unsubscribe(sessionID, method string, ch chan json.RawMessage) {
	key := eventKey(sessionID, method)

	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	handlers := c.handlers[key]
	for i, h := range handlers {
		if h == ch {
			c.handlers[key] = append(handlers[:i], handlers[i+1:]...)
			close(ch)
			return
		}
	}
}

func eventKey(sessionID, method string) string { return sessionID + ":" + method }

func (c *Client) readLoop() {
	defer c.Close()

	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return
		}

		if resp.ID > 0 {
			c.pendingMu.Lock()
			ch, ok := c.pending[resp.ID]
			c.pendingMu.Unlock()
			if ok {
				res := rawResult{result: resp.Result}
				if resp.Error != nil {
					res.err = &ProtocolError{Code: resp.Error.Code, Message: resp.Error.Message}
				}
				select {
				case ch <- res:
				default:
				}
			}
			continue
		}

		if resp.Method == "" {
			continue
		}

		key := eventKey(resp.SessionID, resp.Method)
		c.handlersMu.Lock()
		handlers := c.handlers[key]
		for _, h := range handlers {
			select {
			case h <- resp.Params:
			default:
				// Slow consumer; drop rather than block the read loop.
			}
		}
		c.handlersMu.Unlock()
	}
}
