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

// In this file: the error taxonomy of the tool invocation layer.

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoServer is returned when an operation references a server name that
// was never registered with [Client.AddServer].
var ErrNoServer = errors.New("server not configured")

// ErrUnknownKind is returned by [NewTransport] for a transport kind outside
// the supported set.
var ErrUnknownKind = errors.New("unknown transport kind")

// ConnectionError indicates that the transport could not be established, or
// that it failed mid-flight.  It is transient: the retry layer reconnects
// and tries again.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %q failed: %s", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates that no response arrived within the invocation
// deadline.  It is transient and retried.  It unwraps to
// [context.DeadlineExceeded] so that existing errors.Is checks keep
// working.
type TimeoutError struct {
	Server string
	Tool   string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("server %q: no response after %s", e.Server, e.After)
	}
	return fmt.Sprintf("tool %q on server %q: no response after %s", e.Tool, e.Server, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// ToolError is a well-formed error response from the server for one tool
// call.  It is terminal: retrying a logically rejected request cannot help,
// so the retry layer surfaces it immediately.
type ToolError struct {
	Tool    string
	Code    int // JSON-RPC error code, zero for tool-level failures
	Message string
}

func (e *ToolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tool %q failed: %s (code %d)", e.Tool, e.Message, e.Code)
	}
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}

// RateLimitedError is a provider-side throttling response.  RetryAfter is
// the server's hint for when to try again; zero means the server gave none.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter <= 0 {
		return "server rate limited"
	}
	return fmt.Sprintf("server rate limited, retry after %s", e.RetryAfter)
}
