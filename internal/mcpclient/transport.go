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

// In this file: the Transport capability and the factory that selects a
// concrete implementation from the server configuration.

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transport is the wire-level capability of a single MCP server connection.
// Implementations are not required to be safe for concurrent use before
// Start returns; after that, Invoke and Ping may be called from multiple
// goroutines.  Close is idempotent.
type Transport interface {
	// Start establishes the connection and performs the protocol
	// handshake.  It must be called exactly once before any Invoke.
	Start(ctx context.Context) error
	// Invoke calls the named tool and returns the raw payload of the
	// result.  A tool-level failure is returned as an error, never
	// encoded in the payload.
	Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
	// Ping checks that the server is responsive.
	Ping(ctx context.Context) error
	// Close terminates the connection and releases resources.
	Close() error
}

// TransportFunc creates a transport from a server configuration.  It exists
// so that tests can substitute a fake wire.
type TransportFunc func(cfg ServerConfig) (Transport, error)

// NewTransport returns the transport for cfg.Kind.  The variant set is
// closed: an unknown kind is a configuration error, not an extension point.
func NewTransport(cfg ServerConfig) (Transport, error) {
	switch cfg.Kind {
	case KindStream, KindHTTP, KindPipe:
		return newMCPTransport(cfg)
	case KindSocket:
		return newSocketTransport(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
