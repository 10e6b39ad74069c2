package whatsdump

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rusq/whatsdump/internal/fixtures"
	"github.com/rusq/whatsdump/internal/mcpclient"
	"github.com/rusq/whatsdump/types"
)

func TestSession_Authenticate(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		expectFn func(mc *mockInvoker)
		checkFn  func(t *testing.T, res *types.AuthResult, err error)
	}{
		{
			"already paired",
			"",
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "authenticate", map[string]any{}, authTimeout).
					Return(json.RawMessage(fixtures.AuthOKJSON), nil)
			},
			func(t *testing.T, res *types.AuthResult, err error) {
				require.NoError(t, err)
				assert.True(t, res.Authenticated())
				assert.Equal(t, "+15551230001", res.Phone)
			},
		},
		{
			"pending pairing carries a QR code",
			"+15551230001",
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "authenticate",
						map[string]any{"phone_number": "+15551230001"}, authTimeout).
					Return(json.RawMessage(fixtures.AuthPendingJSON), nil)
			},
			func(t *testing.T, res *types.AuthResult, err error) {
				require.NoError(t, err)
				assert.True(t, res.Pending())
				assert.NotEmpty(t, res.QRCode)
			},
		},
		{
			"invalid phone fails without a round trip",
			"not-a-phone",
			func(mc *mockInvoker) {},
			func(t *testing.T, res *types.AuthResult, err error) {
				assert.Nil(t, res)
				var aerr *AuthError
				assert.ErrorAs(t, err, &aerr)
			},
		},
		{
			"bridge reports failure",
			"",
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "authenticate", gomock.Any(), gomock.Any()).
					Return(json.RawMessage(`{"status":"failed","message":"pairing rejected"}`), nil)
			},
			func(t *testing.T, res *types.AuthResult, err error) {
				assert.Nil(t, res)
				var aerr *AuthError
				require.ErrorAs(t, err, &aerr)
				assert.ErrorContains(t, err, "pairing rejected")
			},
		},
		{
			"transport failure",
			"",
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "authenticate", gomock.Any(), gomock.Any()).
					Return(nil, &mcpclient.ToolError{Tool: "authenticate", Message: "bridge offline"})
			},
			func(t *testing.T, res *types.AuthResult, err error) {
				assert.Nil(t, res)
				assert.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := NewmockInvoker(gomock.NewController(t))
			tt.expectFn(mc)
			s := testSession(t, mc)

			res, err := s.Authenticate(context.Background(), tt.phone)
			tt.checkFn(t, res, err)
		})
	}
}

func TestSession_Status(t *testing.T) {
	mc := NewmockInvoker(gomock.NewController(t))
	mc.EXPECT().
		InvokeToolTimeout(gomock.Any(), "whatsapp", "get_status", gomock.Nil(), gomock.Any()).
		Return(json.RawMessage(fixtures.StatusJSON), nil)
	s := testSession(t, mc)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "+15551230001", st.Phone)
	assert.False(t, st.LastActivity.IsZero())
}

func TestSession_ChatInfo(t *testing.T) {
	t.Run("group chat", func(t *testing.T) {
		mc := NewmockInvoker(gomock.NewController(t))
		mc.EXPECT().
			InvokeToolTimeout(gomock.Any(), "whatsapp", "get_chat_info",
				map[string]any{"chat_jid": fixtures.TestGroupJID}, gomock.Any()).
			Return(json.RawMessage(fixtures.ChatInfoJSON), nil)
		s := testSession(t, mc)

		info, err := s.ChatInfo(context.Background(), fixtures.TestGroupJID)
		require.NoError(t, err)
		assert.Equal(t, fixtures.TestGroupJID, info.JID)
		assert.True(t, info.IsGroup)
		assert.Len(t, info.Participants, 2)
		assert.Equal(t, 1337, info.MessageCount)
	})
	t.Run("unknown chat", func(t *testing.T) {
		mc := NewmockInvoker(gomock.NewController(t))
		mc.EXPECT().
			InvokeToolTimeout(gomock.Any(), "whatsapp", "get_chat_info", gomock.Any(), gomock.Any()).
			Return(nil, &mcpclient.ToolError{Tool: "get_chat_info", Message: "chat not found"})
		s := testSession(t, mc)

		_, err := s.ChatInfo(context.Background(), fixtures.TestGroupJID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("empty JID", func(t *testing.T) {
		s := testSession(t, NewmockInvoker(gomock.NewController(t)))
		_, err := s.ChatInfo(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestSession_Logout(t *testing.T) {
	mc := NewmockInvoker(gomock.NewController(t))
	gomock.InOrder(
		mc.EXPECT().
			InvokeToolTimeout(gomock.Any(), "whatsapp", "disconnect", gomock.Nil(), gomock.Any()).
			Return(json.RawMessage(`{"success":true}`), nil),
		mc.EXPECT().Disconnect("whatsapp").Return(nil),
	)
	s := testSession(t, mc)

	assert.NoError(t, s.Logout(context.Background()))
}
