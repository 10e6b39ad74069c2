package whatsdump

// In this file: near-realtime message monitoring by polling.

import (
	"context"
	"errors"
	"runtime/trace"
	"time"

	"github.com/rusq/whatsdump/types"
)

// Watch defaults.
const (
	DefWatchInterval = 30 * time.Second
	watchChatsPerReq = 20 // recent chats checked per poll
	watchTailLen     = 5  // messages fetched per chat per poll
	maxSeenMessages  = 1000
)

// WatchFunc is called with every batch of new messages in a chat.
// Returning an error stops the watch.
type WatchFunc func(chat types.Chat, mm types.Messages) error

// Watch polls the bridge and calls fn for every chat with new messages.
// With a non-empty jids list only those chats are watched, otherwise the
// most recently active ones.  The first poll reports the recent tail of
// every watched chat.  Watch runs until ctx is cancelled, which is a normal
// stop and returns nil, or until fn or the bridge report an error.
func (s *Session) Watch(ctx context.Context, jids []string, interval time.Duration, fn WatchFunc) error {
	ctx, task := trace.NewTask(ctx, "Watch")
	defer task.End()

	if fn == nil {
		return errors.New("callback is nil")
	}
	if interval <= 0 {
		interval = DefWatchInterval
	}
	seen := newSeenSet(maxSeenMessages)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := s.pollOnce(ctx, jids, seen, fn); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// pollOnce checks every watched chat for messages not seen before.
func (s *Session) pollOnce(ctx context.Context, jids []string, seen *seenSet, fn WatchFunc) error {
	chats, err := s.watchedChats(ctx, jids)
	if err != nil {
		return err
	}
	for _, chat := range chats {
		mm, err := s.GetChatMessages(ctx, chat.JID, MessagesParams{Limit: watchTailLen, NoContext: true})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// The chat disappeared between polls.
				continue
			}
			return err
		}
		fresh := seen.filter(chat.JID, mm)
		if len(fresh) == 0 {
			continue
		}
		trace.Logf(ctx, "info", "chat %q: %d new", chat.JID, len(fresh))
		if err := fn(chat, fresh); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) watchedChats(ctx context.Context, jids []string) (types.Chats, error) {
	if len(jids) == 0 {
		return s.ListChats(ctx, ListChatsParams{Limit: watchChatsPerReq})
	}
	chats := make(types.Chats, len(jids))
	for i, jid := range jids {
		chats[i] = types.Chat{JID: jid}
	}
	return chats, nil
}

// seenSet is a fixed capacity set of message keys with FIFO eviction, so
// that a long running watch does not grow without bound.
type seenSet struct {
	keys  map[string]struct{}
	order []string
	cap   int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{keys: make(map[string]struct{}, capacity), cap: capacity}
}

// filter returns the messages not seen before and marks them seen.
func (ss *seenSet) filter(jid string, mm types.Messages) types.Messages {
	var fresh types.Messages
	for _, m := range mm {
		key := jid + "_" + m.ID
		if _, ok := ss.keys[key]; ok {
			continue
		}
		ss.add(key)
		fresh = append(fresh, m)
	}
	return fresh
}

func (ss *seenSet) add(key string) {
	if len(ss.order) >= ss.cap {
		oldest := ss.order[0]
		ss.order = ss.order[1:]
		delete(ss.keys, oldest)
	}
	ss.keys[key] = struct{}{}
	ss.order = append(ss.order, key)
}
