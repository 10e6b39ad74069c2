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

// Package mcpclient implements a client for MCP tool servers.  It handles
// transport selection, the session lifecycle with health probing, and the
// translation of tool results into raw payloads and typed errors.  Rate
// limiting and retries are out of its scope and live in the layers above.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Client manages sessions to any number of tool servers, keyed by logical
// server name.  There is at most one session, and therefore at most one live
// transport, per name.  Safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     []SessionOption
}

// New creates an empty client.  The options are applied to every session it
// creates.
func New(opt ...SessionOption) *Client {
	return &Client{
		sessions: make(map[string]*Session),
		opts:     opt,
	}
}

// AddServer registers a server without connecting; the session dials on
// first use.  Registering a name twice is an error, remove it first.
func (c *Client) AddServer(cfg ServerConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[cfg.Name]; ok {
		return fmt.Errorf("server %q already registered", cfg.Name)
	}
	s, err := NewSession(cfg, c.opts...)
	if err != nil {
		return err
	}
	c.sessions[cfg.Name] = s
	return nil
}

// RemoveServer disconnects and forgets the named server.
func (c *Client) RemoveServer(name string) error {
	c.mu.Lock()
	s, ok := c.sessions[name]
	delete(c.sessions, name)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoServer, name)
	}
	return s.Disconnect()
}

// Connect registers the server if it is not known yet and establishes its
// session.  For an already registered name the stored configuration wins and
// cfg is ignored.
func (c *Client) Connect(ctx context.Context, cfg ServerConfig) error {
	c.mu.Lock()
	s, ok := c.sessions[cfg.Name]
	if !ok {
		var err error
		s, err = NewSession(cfg, c.opts...)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.sessions[cfg.Name] = s
	}
	c.mu.Unlock()
	return s.Connect(ctx)
}

// InvokeTool calls the named tool on the named server and returns the raw
// result payload.
func (c *Client) InvokeTool(ctx context.Context, server, tool string, args map[string]any) (json.RawMessage, error) {
	return c.InvokeToolTimeout(ctx, server, tool, args, 0)
}

// InvokeToolTimeout is [Client.InvokeTool] with a per-call round trip budget
// for tools that legitimately run long, such as a full chat export.  A
// non-positive timeout means the server's configured default.
func (c *Client) InvokeToolTimeout(ctx context.Context, server, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error) {
	s, err := c.lookup(server)
	if err != nil {
		return nil, err
	}
	return s.InvokeTimeout(ctx, tool, args, timeout)
}

// Disconnect closes the named server's session.  The registration stays, so
// a later Connect or InvokeTool re-establishes it.
func (c *Client) Disconnect(name string) error {
	s, err := c.lookup(name)
	if err != nil {
		return err
	}
	return s.Disconnect()
}

// HealthCheck reports whether the named server currently responds to a
// probe.  An unknown name is simply unhealthy.
func (c *Client) HealthCheck(ctx context.Context, name string) bool {
	s, err := c.lookup(name)
	if err != nil {
		return false
	}
	return s.Ping(ctx) == nil
}

// State returns the session state for the named server.
func (c *Client) State(name string) (State, error) {
	s, err := c.lookup(name)
	if err != nil {
		return Disconnected, err
	}
	return s.State(), nil
}

// Servers returns the registered server names in lexical order.
func (c *Client) Servers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.sessions))
}

// Close disconnects every session.  Registrations are kept, the client
// remains usable.
func (c *Client) Close() error {
	c.mu.Lock()
	ss := slices.Collect(maps.Values(c.sessions))
	c.mu.Unlock()
	var errs []error
	for _, s := range ss {
		if err := s.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) lookup(name string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoServer, name)
	}
	return s, nil
}
