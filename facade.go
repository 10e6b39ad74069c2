package whatsdump

// In this file: the process-wide default session.

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/trace"
	"sync"

	"github.com/rusq/whatsdump/internal/network"
)

// The default session, created lazily by [Default] or explicitly by [Init].
var (
	defMu   sync.Mutex
	defSess *Session
)

// Init creates the default session from cfg, replacing and closing the
// previous one, if any.  Programs that only ever need one session can then
// use the package level functions instead of carrying a [Session] around.
func Init(ctx context.Context, cfg Config, opt ...Option) error {
	s, err := New(ctx, cfg.Server, append([]Option{WithLimits(cfg.Limits)}, opt...)...)
	if err != nil {
		return err
	}
	defMu.Lock()
	old := defSess
	defSess = s
	defMu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

// Default returns the default session, creating it on first use from
// [EnvConfig].  Concurrent first calls create exactly one session.  After
// [Teardown] the next call creates a fresh one.
func Default(ctx context.Context) (*Session, error) {
	defMu.Lock()
	defer defMu.Unlock()
	if defSess != nil {
		return defSess, nil
	}
	cfg, err := EnvConfig()
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, cfg.Server, WithLimits(cfg.Limits))
	if err != nil {
		return nil, err
	}
	defSess = s
	return defSess, nil
}

// Teardown closes the default session.  It is safe to call without one, and
// the next [Default] call starts over.
func Teardown() error {
	defMu.Lock()
	s := defSess
	defSess = nil
	defMu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// UseTool invokes an arbitrary tool on the default session and returns the
// raw result payload.
func UseTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	s, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return s.UseTool(ctx, tool, args)
}

// UseTool invokes a tool that has no typed wrapper.  The call is rate
// limited in the generic category and retried like any other operation.
func (s *Session) UseTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	ctx, task := trace.NewTask(ctx, "UseTool")
	defer task.End()

	if tool == "" {
		return nil, errors.New("tool name is empty")
	}
	return s.callTool(ctx, network.CatGeneric, tool, args)
}
