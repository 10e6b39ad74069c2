package whatsdump

// In this file: full text message search.

import (
	"context"
	"errors"
	"runtime/trace"
	"strings"

	"github.com/rusq/whatsdump/internal/network"
	"github.com/rusq/whatsdump/types"
)

// DefSearchResults is the default cap on the number of search results.
const DefSearchResults = 50

// SearchParams are the optional parameters of [Session.SearchMessages].
type SearchParams struct {
	// ChatJID restricts the search to a single chat.
	ChatJID string
	// Limit caps the number of results.  Zero means [DefSearchResults].
	Limit int
	// MessageTypes restricts the result to the given message types, i.e.
	// "text", "image", "video" or "document".
	MessageTypes []string
}

// SearchMessages searches the message history for query.
func (s *Session) SearchMessages(ctx context.Context, query string, p SearchParams) (types.Messages, error) {
	ctx, task := trace.NewTask(ctx, "SearchMessages")
	defer task.End()

	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefSearchResults
	}
	args := map[string]any{
		"query": query,
		"limit": limit,
	}
	if p.ChatJID != "" {
		args["chat_jid"] = p.ChatJID
	}
	if len(p.MessageTypes) > 0 {
		args["message_types"] = p.MessageTypes
	}
	raw, err := s.callTool(ctx, network.CatMessages, "search_messages", args)
	if err != nil {
		if p.ChatJID != "" {
			err = asNotFound(err, p.ChatJID)
		}
		return nil, err
	}
	return decodeList[types.Message](raw, "messages")
}
