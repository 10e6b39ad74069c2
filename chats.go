package whatsdump

// In this file: chat listing.

import (
	"context"
	"runtime/trace"

	"github.com/rusq/whatsdump/internal/network"
	"github.com/rusq/whatsdump/types"
)

// Page sizes for chat list requests.
const (
	DefChatsPerReq = 50  // what the public bridges default to
	MaxChatsPerReq = 100 // hard server cap on the page size
)

// Sort orders for [ListChatsParams.SortBy].
const (
	SortLastActive = "last_active"
	SortName       = "name"
)

// ListChatsParams are the parameters of [Session.ListChats].  Zero value
// requests the first page of [DefChatsPerReq] chats with the last message
// previews, most recently active first.
type ListChatsParams struct {
	// Limit is the page size, capped at [MaxChatsPerReq].  Zero means
	// [DefChatsPerReq].
	Limit int
	// Page is the zero based page number.
	Page int
	// NoLastMessage omits the last message preview from each chat.
	NoLastMessage bool
	// SortBy is the sort order, [SortLastActive] when empty.
	SortBy string
}

func (p ListChatsParams) args() map[string]any {
	limit := p.Limit
	if limit <= 0 {
		limit = DefChatsPerReq
	} else if limit > MaxChatsPerReq {
		limit = MaxChatsPerReq
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortLastActive
	}
	return map[string]any{
		"limit":                limit,
		"page":                 p.Page,
		"include_last_message": !p.NoLastMessage,
		"sort_by":              sortBy,
	}
}

// ListChats returns one page of the chat list.
func (s *Session) ListChats(ctx context.Context, p ListChatsParams) (types.Chats, error) {
	ctx, task := trace.NewTask(ctx, "ListChats")
	defer task.End()

	raw, err := s.callTool(ctx, network.CatChats, "list_chats", p.args())
	if err != nil {
		return nil, err
	}
	return decodeList[types.Chat](raw, "chats")
}

// AllChats pages through the entire chat list.
func (s *Session) AllChats(ctx context.Context) (types.Chats, error) {
	ctx, task := trace.NewTask(ctx, "AllChats")
	defer task.End()

	var all types.Chats
	for page := 0; ; page++ {
		chunk, err := s.ListChats(ctx, ListChatsParams{Limit: DefChatsPerReq, Page: page})
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
		trace.Logf(ctx, "info", "chats page #%d, fetched: %d, total: %d", page, len(chunk), len(all))
		if len(chunk) < DefChatsPerReq {
			break
		}
	}
	return all, nil
}
