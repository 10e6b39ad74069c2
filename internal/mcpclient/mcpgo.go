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
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// In this file: the transport for the stream, http and pipe kinds, backed by
// the mark3labs client.  The socket kind lives in socket.go, as the upstream
// library has no websocket client.

const (
	clientName    = "whatsdump"
	clientVersion = "1.0.0"
)

// mcpTransport adapts [client.Client] to the [Transport] capability.
type mcpTransport struct {
	cfg ServerConfig
	cli *client.Client

	// serialise keeps at most one request in flight.  Set for the pipe
	// kind, which shares a single stdio stream with the server.
	serialise bool
	callMu    sync.Mutex
}

func newMCPTransport(cfg ServerConfig) (*mcpTransport, error) {
	var (
		cli *client.Client
		err error
	)
	switch cfg.Kind {
	case KindStream:
		var opts []transport.ClientOption
		if h := cfg.headers(); len(h) > 0 {
			opts = append(opts, transport.WithHeaders(h))
		}
		cli, err = client.NewSSEMCPClient(cfg.Endpoint, opts...)
	case KindHTTP:
		var opts []transport.StreamableHTTPCOption
		if h := cfg.headers(); len(h) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(h))
		}
		cli, err = client.NewStreamableHttpClient(cfg.Endpoint, opts...)
	case KindPipe:
		// For the pipe kind the endpoint is the server executable.  The
		// library merges cfg.Env over the inherited environment.
		cli, err = client.NewStdioMCPClientWithOptions(cfg.Endpoint, cfg.Env, cfg.Args)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	if err != nil {
		return nil, &ConnectionError{Server: cfg.Name, Err: err}
	}
	return &mcpTransport{cfg: cfg, cli: cli, serialise: cfg.Kind == KindPipe}, nil
}

// Start brings up the underlying transport and runs the initialize
// handshake.  The pipe kind is started by the library on construction, the
// network kinds need an explicit start.
func (t *mcpTransport) Start(ctx context.Context) error {
	if t.cfg.Kind != KindPipe {
		if err := t.cli.GetTransport().Start(ctx); err != nil {
			return &ConnectionError{Server: t.cfg.Name, Err: err}
		}
	}
	initReq := mcplib.InitializeRequest{
		Params: mcplib.InitializeParams{
			ProtocolVersion: mcplib.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcplib.ClientCapabilities{},
			ClientInfo: mcplib.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}
	if _, err := t.cli.Initialize(ctx, initReq); err != nil {
		t.cli.Close()
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}
	return nil
}

func (t *mcpTransport) Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if t.serialise {
		t.callMu.Lock()
		defer t.callMu.Unlock()
	}
	res, err := t.cli.CallTool(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, t.wireErr(tool, err)
	}
	return payloadFromText(tool, textContent(res.Content), res.IsError)
}

func (t *mcpTransport) Ping(ctx context.Context) error {
	if t.serialise {
		t.callMu.Lock()
		defer t.callMu.Unlock()
	}
	if err := t.cli.Ping(ctx); err != nil {
		return &ConnectionError{Server: t.cfg.Name, Err: err}
	}
	return nil
}

func (t *mcpTransport) Close() error {
	return t.cli.Close()
}

// wireErr maps a library error to the package error taxonomy.
func (t *mcpTransport) wireErr(tool string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Server: t.cfg.Name, Tool: tool, After: t.cfg.timeout()}
	}
	return &ConnectionError{Server: t.cfg.Name, Err: err}
}
