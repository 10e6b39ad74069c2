package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a scriptable [Transport].  Unset functions succeed.
type fakeTransport struct {
	startFn  func(ctx context.Context) error
	invokeFn func(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
	pingFn   func(ctx context.Context) error
	closed   atomic.Int32
}

func (f *fakeTransport) Start(ctx context.Context) error {
	if f.startFn != nil {
		return f.startFn(ctx)
	}
	return nil
}

func (f *fakeTransport) Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if f.invokeFn != nil {
		return f.invokeFn(ctx, tool, args)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeTransport) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed.Add(1)
	return nil
}

// transportSpawner hands out fakeTransports and remembers them in order.
type transportSpawner struct {
	mu      sync.Mutex
	spawned []*fakeTransport
	prep    func(n int, ft *fakeTransport) // n is zero-based
}

func (ts *transportSpawner) fn(ServerConfig) (Transport, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ft := &fakeTransport{}
	if ts.prep != nil {
		ts.prep(len(ts.spawned), ft)
	}
	ts.spawned = append(ts.spawned, ft)
	return ft, nil
}

func (ts *transportSpawner) count() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.spawned)
}

func (ts *transportSpawner) at(i int) *fakeTransport {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.spawned[i]
}

func testConfig() ServerConfig {
	return ServerConfig{
		Name:     "whatsapp",
		Endpoint: "http://localhost:3000",
		Kind:     KindStream,
		// Keep the probe loop out of the way unless a test wants it.
		HealthInterval: time.Hour,
	}
}

func TestSession_Connect(t *testing.T) {
	t.Parallel()
	ts := &transportSpawner{}
	s, err := NewSession(testConfig(), WithTransportFunc(ts.fn))
	require.NoError(t, err)
	defer s.Disconnect()

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, Connected, s.State())
	assert.Equal(t, 1, ts.count())

	// Second connect is a no-op.
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, 1, ts.count())
	assert.Equal(t, 0, s.Reconnects())
}

func TestSession_Connect_startFails(t *testing.T) {
	t.Parallel()
	ts := &transportSpawner{prep: func(n int, ft *fakeTransport) {
		ft.startFn = func(context.Context) error {
			return errors.New("handshake refused")
		}
	}}
	s, err := NewSession(testConfig(), WithTransportFunc(ts.fn))
	require.NoError(t, err)

	require.Error(t, s.Connect(context.Background()))
	assert.Equal(t, Disconnected, s.State())
	// The failed transport must not leak.
	assert.Equal(t, int32(1), ts.at(0).closed.Load())
}

func TestSession_Invoke_autoConnects(t *testing.T) {
	t.Parallel()
	ts := &transportSpawner{prep: func(n int, ft *fakeTransport) {
		ft.invokeFn = func(_ context.Context, tool string, args map[string]any) (json.RawMessage, error) {
			assert.Equal(t, "list_chats", tool)
			assert.Equal(t, float64(0), args["page"])
			return json.RawMessage(`{"chats":[]}`), nil
		}
	}}
	s, err := NewSession(testConfig(), WithTransportFunc(ts.fn))
	require.NoError(t, err)
	defer s.Disconnect()

	got, err := s.Invoke(context.Background(), "list_chats", map[string]any{"page": float64(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chats":[]}`, string(got))
	assert.Equal(t, Connected, s.State())
	assert.Zero(t, s.Inflight())
}

func TestSession_Invoke_degradesAndReconnects(t *testing.T) {
	t.Parallel()
	connErr := &ConnectionError{Server: "whatsapp", Err: errors.New("broken pipe")}
	ts := &transportSpawner{prep: func(n int, ft *fakeTransport) {
		if n == 0 {
			ft.invokeFn = func(context.Context, string, map[string]any) (json.RawMessage, error) {
				return nil, connErr
			}
		}
	}}
	s, err := NewSession(testConfig(), WithTransportFunc(ts.fn))
	require.NoError(t, err)
	defer s.Disconnect()

	_, err = s.Invoke(context.Background(), "get_status", nil)
	require.Error(t, err)
	assert.Equal(t, Degraded, s.State())

	// The next call replaces the transport and succeeds.
	_, err = s.Invoke(context.Background(), "get_status", nil)
	require.NoError(t, err)
	assert.Equal(t, Connected, s.State())
	assert.Equal(t, 2, ts.count())
	assert.Equal(t, 1, s.Reconnects())
	assert.Equal(t, int32(1), ts.at(0).closed.Load())
}

func TestSession_Invoke_toolErrorDoesNotDegrade(t *testing.T) {
	t.Parallel()
	ts := &transportSpawner{prep: func(n int, ft *fakeTransport) {
		ft.invokeFn = func(context.Context, string, map[string]any) (json.RawMessage, error) {
			return nil, &ToolError{Tool: "get_chat_info", Message: "no such chat"}
		}
	}}
	s, err := NewSession(testConfig(), WithTransportFunc(ts.fn))
	require.NoError(t, err)
	defer s.Disconnect()

	_, err = s.Invoke(context.Background(), "get_chat_info", nil)
	require.Error(t, err)
	assert.Equal(t, Connected, s.State())

	_, err = s.Invoke(context.Background(), "get_chat_info", nil)
	require.Error(t, err)
	assert.Equal(t, 1, ts.count(), "a rejected request must not cause a reconnect")
}

func TestSession_Disconnect_idempotent(t *testing.T) {
	t.Parallel()
	ts := &transportSpawner{}
	s, err := NewSession(testConfig(), WithTransportFunc(ts.fn))
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.Disconnect())
	assert.Equal(t, Disconnected, s.State())
	require.NoError(t, s.Disconnect())
	assert.Equal(t, Disconnected, s.State())
	assert.Equal(t, int32(1), ts.at(0).closed.Load())
}

func TestSession_staleSessionRecycles(t *testing.T) {
	// Mutates the package clock, not parallel.
	cur := time.Now()
	now = func() time.Time { return cur }
	defer func() { now = time.Now }()

	cfg := testConfig()
	cfg.SessionTimeout = time.Minute
	ts := &transportSpawner{}
	s, err := NewSession(cfg, WithTransportFunc(ts.fn))
	require.NoError(t, err)
	defer s.Disconnect()

	_, err = s.Invoke(context.Background(), "get_status", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.count())

	// Within the idle window the transport is reused.
	cur = cur.Add(30 * time.Second)
	_, err = s.Invoke(context.Background(), "get_status", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.count())

	// Past the idle window it is replaced.
	cur = cur.Add(2 * time.Minute)
	_, err = s.Invoke(context.Background(), "get_status", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.count())
	assert.Equal(t, 1, s.Reconnects())
	assert.Equal(t, int32(1), ts.at(0).closed.Load())
}

func TestSession_healthProbe(t *testing.T) {
	t.Parallel()
	var unhealthy atomic.Bool
	ts := &transportSpawner{prep: func(n int, ft *fakeTransport) {
		ft.pingFn = func(context.Context) error {
			if unhealthy.Load() {
				return &ConnectionError{Server: "whatsapp", Err: errors.New("gone")}
			}
			return nil
		}
	}}
	cfg := testConfig()
	cfg.HealthInterval = 10 * time.Millisecond
	s, err := NewSession(cfg, WithTransportFunc(ts.fn))
	require.NoError(t, err)
	defer s.Disconnect()

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, Connected, s.State())

	unhealthy.Store(true)
	assert.Eventually(t, func() bool { return s.State() == Degraded },
		time.Second, 5*time.Millisecond, "probe failures must degrade the session")

	// Self-heal: the probe succeeds again.
	unhealthy.Store(false)
	assert.Eventually(t, func() bool { return s.State() == Connected },
		time.Second, 5*time.Millisecond, "a successful probe must heal the session")

	// Degrade again and verify that an invoke replaces the transport.
	unhealthy.Store(true)
	assert.Eventually(t, func() bool { return s.State() == Degraded },
		time.Second, 5*time.Millisecond)
	unhealthy.Store(false)
	_, err = s.Invoke(context.Background(), "get_status", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts.count(), 2, "invoke on a degraded session must reconnect")
}

func TestSession_Ping_notConnected(t *testing.T) {
	t.Parallel()
	s, err := NewSession(testConfig(), WithTransportFunc((&transportSpawner{}).fn))
	require.NoError(t, err)
	var ce *ConnectionError
	assert.ErrorAs(t, s.Ping(context.Background()), &ce)
}

func TestNewSession_badConfig(t *testing.T) {
	t.Parallel()
	_, err := NewSession(ServerConfig{Name: "x"})
	assert.Error(t, err, "endpoint is required")
	_, err = NewSession(ServerConfig{Name: "x", Endpoint: "y", Kind: "morse"})
	assert.Error(t, err)
}

func TestNewSession_kindAlias(t *testing.T) {
	t.Parallel()
	s, err := NewSession(ServerConfig{Name: "x", Endpoint: "ws://h/mcp", Kind: "websocket"})
	require.NoError(t, err)
	assert.Equal(t, KindSocket, s.cfg.Kind)
}
