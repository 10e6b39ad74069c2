package whatsdump

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/rusq/whatsdump/internal/fixtures"
	"github.com/rusq/whatsdump/internal/mcpclient"
	"github.com/rusq/whatsdump/types"
)

func TestSession_SearchMessages(t *testing.T) {
	type args struct {
		query string
		p     SearchParams
	}
	tests := []struct {
		name     string
		args     args
		expectFn func(mc *mockInvoker)
		want     types.Messages
		wantErr  bool
	}{
		{
			"query only",
			args{query: "insurance"},
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "search_messages",
						map[string]any{"query": "insurance", "limit": DefSearchResults},
						gomock.Any()).
					Return(json.RawMessage(fixtures.MessagesPageJSON), nil)
			},
			fixtures.Load[struct {
				Messages types.Messages `json:"messages"`
			}](fixtures.MessagesPageJSON).Messages,
			false,
		},
		{
			"scoped to a chat with type filter",
			args{query: "insurance", p: SearchParams{ChatJID: fixtures.TestChatJID, Limit: 10, MessageTypes: []string{"text"}}},
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "search_messages",
						map[string]any{
							"query":         "insurance",
							"limit":         10,
							"chat_jid":      fixtures.TestChatJID,
							"message_types": []string{"text"},
						},
						gomock.Any()).
					Return(json.RawMessage(`[]`), nil)
			},
			types.Messages{},
			false,
		},
		{
			"blank query fails without a round trip",
			args{query: "  \t"},
			func(mc *mockInvoker) {},
			nil,
			true,
		},
		{
			"tool failure",
			args{query: "insurance"},
			func(mc *mockInvoker) {
				mc.EXPECT().
					InvokeToolTimeout(gomock.Any(), "whatsapp", "search_messages", gomock.Any(), gomock.Any()).
					Return(nil, &mcpclient.ToolError{Tool: "search_messages", Message: "index unavailable"})
			},
			nil,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := NewmockInvoker(gomock.NewController(t))
			tt.expectFn(mc)
			s := testSession(t, mc)

			got, err := s.SearchMessages(context.Background(), tt.args.query, tt.args.p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Session.SearchMessages() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSession_SearchMessages_notFound(t *testing.T) {
	mc := NewmockInvoker(gomock.NewController(t))
	mc.EXPECT().
		InvokeToolTimeout(gomock.Any(), "whatsapp", "search_messages", gomock.Any(), gomock.Any()).
		Return(nil, &mcpclient.ToolError{Tool: "search_messages", Message: "unknown chat"})
	s := testSession(t, mc)

	_, err := s.SearchMessages(context.Background(), "insurance", SearchParams{ChatJID: fixtures.TestGroupJID})
	assert.ErrorIs(t, err, ErrNotFound)
}
