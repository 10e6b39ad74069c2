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

// In this file: server configuration and transport kind selection.

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kind selects the wire transport for a server.
type Kind string

const (
	// KindStream is an HTTP endpoint with server-push events (SSE).
	KindStream Kind = "stream"
	// KindHTTP is the streamable HTTP transport.
	KindHTTP Kind = "http"
	// KindSocket is a persistent bidirectional WebSocket.
	KindSocket Kind = "socket"
	// KindPipe runs the server as a child process and talks to it over its
	// standard streams.
	KindPipe Kind = "pipe"
)

// ParseKind normalises a connection type string.  Aliases used by other
// MCP client implementations are accepted: "sse" for stream, "websocket"
// and "ws" for socket, "stdio" for pipe.  The empty string maps to
// [KindStream].
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "sse", "":
		return KindStream, nil
	case "http", "streamable":
		return KindHTTP, nil
	case "socket", "websocket", "ws":
		return KindSocket, nil
	case "pipe", "stdio":
		return KindPipe, nil
	}
	return "", fmt.Errorf("unknown connection type %q", s)
}

// Defaults for the optional [ServerConfig] fields.
const (
	DefTimeout        = 30 * time.Second
	DefMaxRetries     = 3
	DefRetryDelay     = time.Second
	DefHealthInterval = 60 * time.Second
	DefSessionTimeout = time.Hour
)

// ServerConfig identifies one remote tool server.  It is immutable once a
// session is built: pass it by value, the session keeps its own copy.
type ServerConfig struct {
	// Name is the logical server name that all [Client] operations refer
	// to.
	Name string `toml:"name" validate:"required"`
	// Endpoint is the server URL for the network transports, or the
	// command to execute for [KindPipe].
	Endpoint string `toml:"endpoint" validate:"required"`
	Kind     Kind   `toml:"connection_type" validate:"omitempty,oneof=stream http socket pipe"`
	// AuthToken, when set, is sent as a bearer credential with every
	// request.
	AuthToken string `toml:"auth_token"`
	// Timeout bounds a single invocation round trip.
	Timeout    time.Duration `toml:"timeout" validate:"min=0"`
	MaxRetries int           `toml:"max_retries" validate:"min=0,max=10"`
	// RetryDelay seeds the exponential backoff between retries.
	RetryDelay     time.Duration `toml:"retry_delay" validate:"min=0"`
	HealthInterval time.Duration `toml:"health_check_interval" validate:"min=0"`
	// SessionTimeout is the idle lifetime of a connection; a session that
	// has not seen traffic for longer is re-established before use.
	SessionTimeout time.Duration     `toml:"session_timeout" validate:"min=0"`
	Headers        map[string]string `toml:"headers"`
	// Args are the child process arguments for [KindPipe].
	Args []string `toml:"args"`
	// Env is the child process environment for [KindPipe]; empty inherits
	// the parent environment.
	Env []string `toml:"env"`
}

var validate = validator.New()

// Validate checks the configuration for sanity.  Kind must already be
// normalised (see [ParseKind]).
func (c ServerConfig) Validate() error {
	return validate.Struct(c)
}

// normalize resolves transport kind aliases.
func (c ServerConfig) normalize() (ServerConfig, error) {
	k, err := ParseKind(string(c.Kind))
	if err != nil {
		return c, err
	}
	c.Kind = k
	return c, nil
}

func (c ServerConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefTimeout
	}
	return c.Timeout
}

func (c ServerConfig) healthInterval() time.Duration {
	if c.HealthInterval <= 0 {
		return DefHealthInterval
	}
	return c.HealthInterval
}

func (c ServerConfig) sessionTimeout() time.Duration {
	if c.SessionTimeout <= 0 {
		return DefSessionTimeout
	}
	return c.SessionTimeout
}

// headers returns the request headers including the client identification
// and the bearer credential.  Explicit headers win over the defaults.
func (c ServerConfig) headers() map[string]string {
	h := make(map[string]string, len(c.Headers)+2)
	h["User-Agent"] = clientName + "/" + clientVersion
	for k, v := range c.Headers {
		h[k] = v
	}
	if c.AuthToken != "" {
		h["Authorization"] = "Bearer " + c.AuthToken
	}
	return h
}
