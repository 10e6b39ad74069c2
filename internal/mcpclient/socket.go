// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// In this file: the websocket transport.  The upstream library has no
// websocket client, so this variant speaks JSON-RPC 2.0 over a gorilla
// connection directly.

const jsonrpcVersion = "2.0"

// wireRequest is an outgoing JSON-RPC message.  A request without an ID is a
// notification and gets no response.
type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *wireError      `json:"error"`
}

type wireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type wireCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type wireInitParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      wireClientInfo `json:"clientInfo"`
}

type wireClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// wireToolResult is the result of a tools/call.  The envelope carries the
// payload in a text item, and the error flag out of band.
type wireToolResult struct {
	Content []wireContent `json:"content"`
	IsError bool          `json:"isError"`
}

type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (r wireToolResult) text() string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}

// socketTransport is a single-use websocket connection.  Once the read loop
// terminates the transport is dead; reconnection means constructing a new
// one.  Calls are correlated to responses by request ID, so any number of
// invocations may be in flight at once.
type socketTransport struct {
	cfg ServerConfig

	mu      sync.Mutex // guards conn and pending
	conn    *websocket.Conn
	pending map[string]chan wireResponse

	done      chan struct{} // closed when the read loop exits
	closeOnce sync.Once
}

func newSocketTransport(cfg ServerConfig) *socketTransport {
	return &socketTransport{
		cfg:     cfg,
		pending: make(map[string]chan wireResponse),
		done:    make(chan struct{}),
	}
}

// Start dials the endpoint and performs the initialize handshake followed by
// the initialized notification.
func (t *socketTransport) Start(ctx context.Context) error {
	hdr := make(http.Header)
	for k, v := range t.cfg.headers() {
		hdr.Set(k, v)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.cfg.Endpoint, hdr)
	if err != nil {
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	go t.readLoop()

	params := wireInitParams{
		ProtocolVersion: mcplib.LATEST_PROTOCOL_VERSION,
		Capabilities:    map[string]any{},
		ClientInfo:      wireClientInfo{Name: clientName, Version: clientVersion},
	}
	if err := t.call(ctx, "initialize", "initialize", params, nil); err != nil {
		t.Close()
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}
	if err := t.notify("notifications/initialized"); err != nil {
		t.Close()
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}
	return nil
}

func (t *socketTransport) Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = make(map[string]any)
	}
	var res wireToolResult
	if err := t.call(ctx, "tools/call", tool, wireCallParams{Name: tool, Arguments: args}, &res); err != nil {
		return nil, err
	}
	return payloadFromText(tool, res.text(), res.IsError)
}

func (t *socketTransport) Ping(ctx context.Context) error {
	if err := t.call(ctx, "ping", "ping", nil, nil); err != nil {
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}
	return nil
}

// Close sends a close frame and tears the connection down.  Safe to call
// multiple times and concurrently with in-flight calls, which fail with a
// connection error.
func (t *socketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = conn.Close()
	})
	return err
}

// call sends one request and waits for the matching response.  label names
// the operation in errors; for tools/call it is the tool name.
func (t *socketTransport) call(ctx context.Context, method, label string, params, result any) error {
	id := uuid.NewString()
	ch := make(chan wireResponse, 1)

	t.mu.Lock()
	if t.conn == nil {
		t.mu.Unlock()
		return &ConnectionError{Server: t.cfg.Name, Err: errors.New("not connected")}
	}
	t.pending[id] = ch
	err := t.conn.WriteJSON(wireRequest{JSONRPC: jsonrpcVersion, ID: id, Method: method, Params: params})
	t.mu.Unlock()
	if err != nil {
		t.forget(id)
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return t.rpcErr(label, resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s response: %w", method, err)
			}
		}
		return nil
	case <-t.done:
		return &ConnectionError{Server: t.cfg.Name, Err: errors.New("connection closed")}
	case <-ctx.Done():
		// The response, if it ever arrives, is dropped by the read loop.
		t.forget(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Server: t.cfg.Name, Tool: label, After: t.cfg.timeout()}
		}
		return ctx.Err()
	}
}

// notify sends a notification; no response is expected.
func (t *socketTransport) notify(method string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return errors.New("not connected")
	}
	return t.conn.WriteJSON(wireRequest{JSONRPC: jsonrpcVersion, Method: method})
}

func (t *socketTransport) forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// readLoop dispatches responses to waiting calls.  It exits on the first
// read error, which includes the connection being closed.
func (t *socketTransport) readLoop() {
	defer close(t.done)
	for {
		var resp wireResponse
		if err := t.conn.ReadJSON(&resp); err != nil {
			return
		}
		if resp.ID == "" {
			// Server-initiated notification, nothing waits for it.
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.mu.Unlock()
		if !ok {
			slog.Debug("dropping late response", "server", t.cfg.Name, "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

// rpcErr maps a JSON-RPC error object to the package error taxonomy.
func (t *socketTransport) rpcErr(label string, we *wireError) error {
	if isThrottleMsg(we.Message) {
		return &RateLimitedError{}
	}
	return &ToolError{Tool: label, Code: we.Code, Message: we.Message}
}
