package whatsdump

// In this file: message retrieval for a single chat.

import (
	"context"
	"errors"
	"runtime/trace"
	"time"

	"github.com/rusq/whatsdump/internal/network"
	"github.com/rusq/whatsdump/types"
)

// DefMessagesPerReq is the default page size for message requests.
const DefMessagesPerReq = 100

// MessagesParams are the parameters of [Session.GetChatMessages].  Zero
// value requests the first page of [DefMessagesPerReq] messages with one
// context message on each side.
type MessagesParams struct {
	// Limit is the page size.  Zero means [DefMessagesPerReq].
	Limit int
	// Page is the zero based page number.
	Page int
	// NoContext omits the surrounding conversation context from each
	// message.
	NoContext bool
	// ContextBefore and ContextAfter are the number of context messages on
	// each side of a match, one each when zero.
	ContextBefore int
	ContextAfter  int
	// After and Before bound the message timestamps.  Zero time means
	// unbounded.
	After  time.Time
	Before time.Time
}

func (p MessagesParams) args(jid string) map[string]any {
	limit := p.Limit
	if limit <= 0 {
		limit = DefMessagesPerReq
	}
	args := map[string]any{
		"chat_jid":        jid,
		"limit":           limit,
		"page":            p.Page,
		"include_context": !p.NoContext,
	}
	if !p.NoContext {
		before, after := p.ContextBefore, p.ContextAfter
		if before <= 0 {
			before = 1
		}
		if after <= 0 {
			after = 1
		}
		args["context_before"] = before
		args["context_after"] = after
	}
	if !p.After.IsZero() {
		args["after"] = p.After.Format(time.RFC3339)
	}
	if !p.Before.IsZero() {
		args["before"] = p.Before.Format(time.RFC3339)
	}
	return args
}

// GetChatMessages returns one page of messages from the chat identified by
// jid.  If the bridge does not know the chat, the returned error wraps
// [ErrNotFound].
func (s *Session) GetChatMessages(ctx context.Context, jid string, p MessagesParams) (types.Messages, error) {
	ctx, task := trace.NewTask(ctx, "GetChatMessages")
	defer task.End()

	if jid == "" {
		return nil, errors.New("chat JID is empty")
	}
	raw, err := s.callTool(ctx, network.CatMessages, "list_messages", p.args(jid))
	if err != nil {
		return nil, asNotFound(err, jid)
	}
	return decodeList[types.Message](raw, "messages")
}

// AllMessages pages through the messages of one chat.  A non-zero after
// bound makes it an incremental fetch.
func (s *Session) AllMessages(ctx context.Context, jid string, after time.Time) (types.Messages, error) {
	ctx, task := trace.NewTask(ctx, "AllMessages")
	defer task.End()

	trace.Logf(ctx, "info", "chat: %q, after: %s", jid, after)

	var all types.Messages
	for page := 0; ; page++ {
		chunk, err := s.GetChatMessages(ctx, jid, MessagesParams{
			Limit:     DefMessagesPerReq,
			Page:      page,
			NoContext: true,
			After:     after,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
		if len(chunk) < DefMessagesPerReq {
			break
		}
	}
	return all, nil
}
