package whatsdump

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { defSess = nil })

	t.Run("sets the default session", func(t *testing.T) {
		defer func() { defSess = nil }()
		mc := NewmockInvoker(gomock.NewController(t))
		mc.EXPECT().Connect(gomock.Any(), DefConfig().Server).Return(nil)

		require.NoError(t, Init(context.Background(), DefConfig(), WithInvoker(mc)))
		s, err := Default(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
	t.Run("replacing closes the previous session", func(t *testing.T) {
		first := NewmockInvoker(gomock.NewController(t))
		first.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil)
		first.EXPECT().Disconnect(DefServerName).Return(nil)
		second := NewmockInvoker(gomock.NewController(t))
		second.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil)
		second.EXPECT().Disconnect(DefServerName).Return(nil)

		require.NoError(t, Init(context.Background(), DefConfig(), WithInvoker(first)))
		require.NoError(t, Init(context.Background(), DefConfig(), WithInvoker(second)))
		require.NoError(t, Teardown())
	})
	t.Run("connection failure leaves no session", func(t *testing.T) {
		mc := NewmockInvoker(gomock.NewController(t))
		mc.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(assert.AnError)

		assert.Error(t, Init(context.Background(), DefConfig(), WithInvoker(mc)))
		assert.Nil(t, defSess)
	})
}

func TestDefault(t *testing.T) {
	t.Cleanup(func() { defSess = nil })

	mc := NewmockInvoker(gomock.NewController(t))
	mc.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, Init(context.Background(), DefConfig(), WithInvoker(mc)))

	// Concurrent callers get the same session.
	const n = 8
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ss = make(map[*Session]bool, 1)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := Default(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			ss[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ss, 1)
}

func TestTeardown(t *testing.T) {
	t.Cleanup(func() { defSess = nil })

	t.Run("without a session", func(t *testing.T) {
		defSess = nil
		assert.NoError(t, Teardown())
	})
	t.Run("closes and forgets", func(t *testing.T) {
		mc := NewmockInvoker(gomock.NewController(t))
		mc.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil)
		mc.EXPECT().Disconnect(DefServerName).Return(nil)

		require.NoError(t, Init(context.Background(), DefConfig(), WithInvoker(mc)))
		require.NoError(t, Teardown())
		assert.Nil(t, defSess)
		assert.NoError(t, Teardown(), "second teardown is a no-op")
	})
}

func TestUseTool(t *testing.T) {
	t.Cleanup(func() { defSess = nil })

	mc := NewmockInvoker(gomock.NewController(t))
	mc.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil)
	mc.EXPECT().
		InvokeToolTimeout(gomock.Any(), DefServerName, "get_status", gomock.Nil(), gomock.Any()).
		Return(json.RawMessage(`{"is_connected":true}`), nil)
	require.NoError(t, Init(context.Background(), DefConfig(), WithInvoker(mc)))

	raw, err := UseTool(context.Background(), "get_status", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_connected":true}`, string(raw))
}

func TestSession_UseTool(t *testing.T) {
	t.Run("empty tool name", func(t *testing.T) {
		s := testSession(t, NewmockInvoker(gomock.NewController(t)))
		_, err := s.UseTool(context.Background(), "", nil)
		assert.Error(t, err)
	})
	t.Run("passes arguments through", func(t *testing.T) {
		mc := NewmockInvoker(gomock.NewController(t))
		mc.EXPECT().
			InvokeToolTimeout(gomock.Any(), "whatsapp", "mark_read",
				map[string]any{"chat_jid": "x@s.whatsapp.net"}, gomock.Any()).
			Return(json.RawMessage(`{"ok":true}`), nil)
		s := testSession(t, mc)

		raw, err := s.UseTool(context.Background(), "mark_read", map[string]any{"chat_jid": "x@s.whatsapp.net"})
		require.NoError(t, err)
		assert.NotEmpty(t, raw)
	})
}
