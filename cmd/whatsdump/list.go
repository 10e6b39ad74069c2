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

package main

// In this file: chat listing, chat metadata and search modes.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rusq/whatsdump"
	"github.com/rusq/whatsdump/types"
)

// runListChats writes the list of every chat to the output.
func runListChats(ctx context.Context, sess *whatsdump.Session, p params) error {
	chats, err := sess.AllChats(ctx)
	if err != nil {
		return err
	}
	f, err := createFile(p.output)
	if err != nil {
		return err
	}
	defer f.Close()
	return formatChats(f, chats, p.format)
}

func formatChats(w io.Writer, chats types.Chats, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(chats)
	case "text", "":
		const strFormat = "%s\t%s\t%s\t%s\n"
		writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		defer writer.Flush()

		fmt.Fprintf(writer, strFormat, "JID", "Name", "Last Active", "Last Message")
		for _, ch := range chats {
			fmt.Fprintf(writer, strFormat, ch.JID, ch.Name, lastActive(ch.LastActive), trunc(oneline(ch.LastMessage), 60))
		}
		return nil
	}
	return fmt.Errorf("invalid listing format %q", format)
}

func lastActive(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// oneline collapses the message text to a single line.
func oneline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// runInfo prints the metadata of the chats given on the command line.
func runInfo(ctx context.Context, sess *whatsdump.Session, p params) error {
	f, err := createFile(p.output)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	for _, jid := range p.jids {
		info, err := sess.ChatInfo(ctx, jid)
		if err != nil {
			if errors.Is(err, whatsdump.ErrNotFound) {
				fmt.Fprintf(f, "chat %q is not known to the bridge\n", jid)
				continue
			}
			return err
		}
		if err := enc.Encode(info); err != nil {
			return err
		}
	}
	return nil
}

// runSearch searches the message history and writes the matches to the
// output.  A single JID on the command line narrows the search to that chat.
func runSearch(ctx context.Context, sess *whatsdump.Session, p params) error {
	var sp whatsdump.SearchParams
	if len(p.jids) == 1 {
		sp.ChatJID = p.jids[0]
	}
	mm, err := sess.SearchMessages(ctx, p.search, sp)
	if err != nil {
		return err
	}
	f, err := createFile(p.output)
	if err != nil {
		return err
	}
	defer f.Close()
	return formatMessages(f, mm, p.format)
}

func formatMessages(w io.Writer, mm types.Messages, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(mm)
	case "text", "":
		for _, m := range mm {
			fmt.Fprintln(w, messageLine(m))
		}
		return nil
	}
	return fmt.Errorf("invalid listing format %q", format)
}

// messageLine renders one message the way it appears in the watch output.
func messageLine(m types.Message) string {
	sender := m.Sender
	if m.FromMe {
		sender = "me"
	}
	if sender == "" {
		sender = "?"
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("2006-01-02 15:04:05"), sender, oneline(m.Text))
}
