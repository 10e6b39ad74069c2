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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// In this file: the session state machine.  A session owns at most one live
// transport at a time and replaces it when the connection goes stale or
// degrades.

// State is the lifecycle state of a [Session].
type State int

//go:generate stringer -type=State
const (
	// Disconnected means no transport is held.  The initial and the
	// post-[Session.Disconnect] state.
	Disconnected State = iota
	// Connecting is the transient state while the handshake runs.
	Connecting
	// Connected means the transport is believed healthy.
	Connected
	// Degraded means the transport failed an invocation or a health
	// probe; the next invocation replaces it.
	Degraded
)

// now is a hook for staleness tests.
var now = time.Now

// Session maintains a connection to one MCP server.  It is safe for
// concurrent use.  The session does not retry: a failed invocation is
// reported to the caller as is, and only the connection replacement on the
// next call is automatic.
type Session struct {
	cfg          ServerConfig
	newTransport TransportFunc

	mu            sync.Mutex
	state         State
	tr            Transport
	lastUsed      time.Time
	everConnected bool
	reconnects    int

	inflight atomic.Int32

	healthCancel context.CancelFunc
	healthDone   chan struct{}
}

// SessionOption is a functional parameter of [NewSession].
type SessionOption func(*Session)

// WithTransportFunc overrides the transport constructor.  Used in tests to
// substitute a fake wire.
func WithTransportFunc(fn TransportFunc) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.newTransport = fn
		}
	}
}

// NewSession creates a disconnected session for the given server.  Kind
// aliases in cfg are resolved, and the configuration is validated.
func NewSession(cfg ServerConfig, opt ...SessionOption) (*Session, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:          cfg,
		newTransport: NewTransport,
	}
	for _, o := range opt {
		o(s)
	}
	return s, nil
}

// Name returns the logical server name.
func (s *Session) Name() string { return s.cfg.Name }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reconnects returns the number of connection re-establishments.  The
// initial connect does not count.
func (s *Session) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// Inflight returns the number of invocations currently on the wire.
func (s *Session) Inflight() int {
	return int(s.inflight.Load())
}

// Connect establishes the connection.  Calling Connect on a connected
// session is a no-op.  On success the health probe loop is running.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Connected {
		return nil
	}
	if s.state == Degraded {
		s.teardownLocked()
	}
	if err := s.connectLocked(ctx); err != nil {
		return err
	}
	s.startHealthLocked()
	return nil
}

// Invoke calls the named tool.  A disconnected, degraded or stale session is
// transparently (re)connected first.  Wire failures mark the session
// degraded, so the transport is replaced on the next call.
func (s *Session) Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	return s.InvokeTimeout(ctx, tool, args, 0)
}

// InvokeTimeout is [Session.Invoke] with a per-call round trip budget for
// long running tools.  A non-positive timeout means the configured default.
func (s *Session) InvokeTimeout(ctx context.Context, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error) {
	tr, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	s.inflight.Add(1)
	defer s.inflight.Add(-1)
	if timeout <= 0 {
		timeout = s.cfg.timeout()
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	payload, err := tr.Invoke(cctx, tool, args)
	if err != nil {
		if isWireFailure(err) {
			s.degrade(tr)
		}
		return nil, err
	}
	s.touch(tr)
	return payload, nil
}

// Ping probes the live transport.  It does not reconnect.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	tr := s.tr
	st := s.state
	s.mu.Unlock()
	if tr == nil || st != Connected {
		return &ConnectionError{Server: s.cfg.Name, Err: errors.New("not connected")}
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	return tr.Ping(cctx)
}

// Disconnect stops the health loop and closes the transport.  Idempotent.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	tr := s.tr
	cancel := s.healthCancel
	done := s.healthDone
	s.tr = nil
	s.healthCancel = nil
	s.healthDone = nil
	s.state = Disconnected
	s.mu.Unlock()

	// Wait for the probe loop outside the lock, it may be mid-probe.
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if tr != nil {
		return tr.Close()
	}
	return nil
}

// ensure returns a connected transport, replacing a degraded or stale one.
func (s *Session) ensure(ctx context.Context) (Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Connected:
		if now().Sub(s.lastUsed) <= s.cfg.sessionTimeout() {
			return s.tr, nil
		}
		// Stale: the server has likely expired the session.
		slog.Debug("recycling stale session", "server", s.cfg.Name)
		s.teardownLocked()
	case Degraded:
		s.teardownLocked()
	}
	if err := s.connectLocked(ctx); err != nil {
		return nil, err
	}
	s.startHealthLocked()
	return s.tr, nil
}

// connectLocked dials and shakes hands.  Callers hold s.mu.
func (s *Session) connectLocked(ctx context.Context) error {
	s.state = Connecting
	tr, err := s.newTransport(s.cfg)
	if err != nil {
		s.state = Disconnected
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()
	if err := tr.Start(cctx); err != nil {
		tr.Close()
		s.state = Disconnected
		return err
	}
	if s.everConnected {
		s.reconnects++
	}
	s.everConnected = true
	s.state = Connected
	s.tr = tr
	s.lastUsed = now()
	return nil
}

func (s *Session) teardownLocked() {
	if s.tr != nil {
		s.tr.Close()
		s.tr = nil
	}
	s.state = Disconnected
}

// degrade marks the session degraded if tr is still the live transport.
func (s *Session) degrade(tr Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == tr && s.state == Connected {
		s.state = Degraded
		slog.Debug("session degraded", "server", s.cfg.Name, "inflight", s.inflight.Load())
	}
}

// touch records traffic on tr for staleness accounting.
func (s *Session) touch(tr Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == tr {
		s.lastUsed = now()
	}
}

func (s *Session) startHealthLocked() {
	if s.healthCancel != nil {
		return
	}
	hctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.healthCancel = cancel
	s.healthDone = done
	go s.healthLoop(hctx, done)
}

// healthLoop periodically probes the live transport.  A failed probe marks
// the session degraded, a successful one heals it.  Replacement of a dead
// transport happens lazily in [Session.Invoke], not here.
func (s *Session) healthLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.cfg.healthInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

func (s *Session) probe(ctx context.Context) {
	s.mu.Lock()
	tr := s.tr
	st := s.state
	s.mu.Unlock()
	if tr == nil || (st != Connected && st != Degraded) {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	err := tr.Ping(pctx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr != tr {
		// Transport was replaced while the probe was in flight.
		return
	}
	switch {
	case err != nil && s.state == Connected:
		s.state = Degraded
		slog.Debug("health probe failed", "server", s.cfg.Name, "error", err)
	case err == nil && s.state == Degraded:
		s.state = Connected
	}
}

// isWireFailure reports whether err indicates a broken connection rather
// than a server-side refusal.
func isWireFailure(err error) bool {
	var (
		ce *ConnectionError
		te *TimeoutError
	)
	return errors.As(err, &ce) || errors.As(err, &te)
}
