// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package whatsdump

// In this file: bulk extraction of chats into conversation files and the
// archive.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/trace"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rusq/whatsdump/internal/dbase"
	"github.com/rusq/whatsdump/types"
)

// DumpResult is the tally of one [Session.Dump] run.
type DumpResult struct {
	Chats    int           // chats processed
	Messages int64         // new messages stored
	Took     time.Duration // wall clock time
}

// DumpOption is a functional parameter of [Session.Dump].
type DumpOption func(*dumpOptions)

type dumpOptions struct {
	arc      *dbase.Archive
	progress func(chat types.Chat, added int64)
	noFiles  bool
}

// DumpToArchive makes Dump insert chats and messages into the archive and
// fetch incrementally: for a chat already archived, only the messages newer
// than the latest stored one are requested.
func DumpToArchive(a *dbase.Archive) DumpOption {
	return func(o *dumpOptions) {
		o.arc = a
	}
}

// DumpProgress registers a callback invoked after each completed chat with
// the number of new messages.
func DumpProgress(fn func(chat types.Chat, added int64)) DumpOption {
	return func(o *dumpOptions) {
		if fn != nil {
			o.progress = fn
		}
	}
}

// DumpNoFiles disables writing the conversation JSON files.
func DumpNoFiles() DumpOption {
	return func(o *dumpOptions) {
		o.noFiles = true
	}
}

// Dump extracts the messages of the given chats, or of every chat when jids
// is empty.  Unless disabled, each conversation is written to the session
// filesystem as an indented JSON file named after the chat JID; the file
// contains the messages fetched in this run.  Chats are fetched concurrently
// by [network.Limits].Workers workers.
func (s *Session) Dump(ctx context.Context, jids []string, opt ...DumpOption) (*DumpResult, error) {
	ctx, task := trace.NewTask(ctx, "Dump")
	defer task.End()

	var options dumpOptions
	for _, o := range opt {
		o(&options)
	}
	if !options.noFiles && s.fs == nil {
		return nil, errors.New("no filesystem adapter, use WithFilesystem or DumpNoFiles")
	}

	chats, err := s.dumpTargets(ctx, jids)
	if err != nil {
		return nil, err
	}
	trace.Logf(ctx, "info", "dumping %d chats", len(chats))

	start := time.Now()
	var (
		mu  sync.Mutex
		res = DumpResult{Chats: len(chats)}
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.limits.Workers)
	for _, chat := range chats {
		eg.Go(func() error {
			n, err := s.dumpOne(ctx, chat, &options)
			if err != nil {
				return fmt.Errorf("chat %q: %w", chat.JID, err)
			}
			mu.Lock()
			res.Messages += n
			mu.Unlock()
			if options.progress != nil {
				options.progress(chat, n)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	res.Took = time.Since(start)
	return &res, nil
}

// dumpTargets resolves the list of chats to extract.
func (s *Session) dumpTargets(ctx context.Context, jids []string) (types.Chats, error) {
	if len(jids) == 0 {
		return s.AllChats(ctx)
	}
	chats := make(types.Chats, 0, len(jids))
	for _, jid := range jids {
		info, err := s.ChatInfo(ctx, jid)
		if err != nil {
			return nil, err
		}
		chats = append(chats, info.Chat)
	}
	return chats, nil
}

// dumpOne extracts a single chat and returns the number of new messages.
func (s *Session) dumpOne(ctx context.Context, chat types.Chat, opts *dumpOptions) (int64, error) {
	var after time.Time
	if opts.arc != nil {
		ts, err := opts.arc.LatestTimestamp(ctx, chat.JID)
		if err != nil {
			return 0, err
		}
		after = ts
	}
	mm, err := s.AllMessages(ctx, chat.JID, after)
	if err != nil {
		return 0, err
	}
	added := int64(len(mm))
	if opts.arc != nil {
		if err := opts.arc.InsertChat(ctx, chat); err != nil {
			return 0, err
		}
		// The insert ignores duplicates, so the count stays correct even
		// if the server treats the "after" bound as inclusive.
		n, err := opts.arc.InsertMessages(ctx, chat.JID, mm)
		if err != nil {
			return 0, err
		}
		added = n
	}
	if !opts.noFiles {
		if err := s.writeConversation(chat, mm); err != nil {
			return 0, err
		}
	}
	return added, nil
}

// writeConversation writes the chat and its messages as an indented JSON
// file named after the chat JID.
func (s *Session) writeConversation(chat types.Chat, mm types.Messages) error {
	name := exportName(chat.JID, string(FormatJSON))
	f, err := s.fs.Create(name)
	if err != nil {
		return fmt.Errorf("error creating %q: %w", name, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(types.Conversation{Chat: chat, Messages: mm}); err != nil {
		return fmt.Errorf("error writing %q: %w", name, err)
	}
	return nil
}
