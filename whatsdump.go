// Package whatsdump provides a WhatsApp archive extraction client that talks
// to a WhatsApp bridge exposed as an MCP tool server.
package whatsdump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/trace"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rusq/fsadapter"

	"github.com/rusq/whatsdump/internal/mcpclient"
	"github.com/rusq/whatsdump/internal/network"
)

//go:generate mockgen -source whatsdump.go -destination invoker_mock_test.go -package whatsdump -mock_names invoker=mockInvoker

// Session stores basic session parameters.  Zero value is not usable, must be
// initialised with New.
type Session struct {
	client invoker      // tool server client
	fs     fsadapter.FS // filesystem adapter for exports and dumps
	log    *slog.Logger

	gate *network.Gate // rate limit gate shared by all operations

	server mcpclient.ServerConfig
	cfg    config
}

// invoker is the interface with some functions of [mcpclient.Client] with the
// sole purpose of mocking in tests (see invoker_mock_test.go).
type invoker interface {
	Connect(ctx context.Context, cfg mcpclient.ServerConfig) error
	InvokeTool(ctx context.Context, server, tool string, args map[string]any) (json.RawMessage, error)
	InvokeToolTimeout(ctx context.Context, server, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error)
	Disconnect(name string) error
	HealthCheck(ctx context.Context, name string) bool
}

var _ invoker = (*mcpclient.Client)(nil)

// ErrNotFound is returned when the bridge does not know the requested chat.
var ErrNotFound = errors.New("chat not found")

// New creates a new whatsdump session with the provided options and
// establishes the connection to the tool server.  If the server refuses the
// connection, a [mcpclient.ConnectionError] is returned.
func New(ctx context.Context, server mcpclient.ServerConfig, opts ...Option) (*Session, error) {
	ctx, task := trace.NewTask(ctx, "New")
	defer task.End()

	s := &Session{
		server: server,
		cfg:    defConfig,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	network.SetLogger(s.log) // set the logger for the network package
	if server.RetryDelay > 0 {
		network.SetRetryDelay(server.RetryDelay)
	}

	if err := s.cfg.limits.Validate(); err != nil {
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			return nil, fmt.Errorf("rate limits failed validation: %s", vErr.Translate(network.OptErrTranslations))
		}
		return nil, err
	}
	gate, err := network.NewGate(s.cfg.limits)
	if err != nil {
		return nil, err
	}
	s.gate = gate

	if s.client == nil {
		s.client = mcpclient.New()
	}
	if err := s.client.Connect(ctx, server); err != nil {
		return nil, err
	}
	return s, nil
}

// Close terminates the connection to the tool server.  The session must not
// be used afterwards.  Safe to call multiple times.
func (s *Session) Close() error {
	return s.client.Disconnect(s.server.Name)
}

// Healthy reports whether the tool server currently responds to a probe.
func (s *Session) Healthy(ctx context.Context) bool {
	return s.client.HealthCheck(ctx, s.server.Name)
}

// Server returns the server configuration the session was created with.
func (s *Session) Server() mcpclient.ServerConfig {
	return s.server
}

// retries returns the number of attempts for the retry wrapper.
func (s *Session) retries() int {
	if s.server.MaxRetries <= 0 {
		return mcpclient.DefMaxRetries
	}
	return s.server.MaxRetries
}

// callTool runs one rate limited, retried tool invocation and returns the raw
// result payload.
func (s *Session) callTool(ctx context.Context, cat network.Category, tool string, args map[string]any) (json.RawMessage, error) {
	return s.callToolTimeout(ctx, cat, tool, args, 0)
}

// callToolTimeout is callTool with a per-call round trip budget, for tools
// that legitimately run long.
func (s *Session) callToolTimeout(ctx context.Context, cat network.Category, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error) {
	var raw json.RawMessage
	err := network.WithRetry(ctx, s.gate.Limiter(cat), s.retries(), func() error {
		var err error
		trace.WithRegion(ctx, tool, func() {
			raw, err = s.client.InvokeToolTimeout(ctx, s.server.Name, tool, args, timeout)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}
