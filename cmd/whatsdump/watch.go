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

// In this file: the message monitor mode.

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/rusq/whatsdump"
	"github.com/rusq/whatsdump/types"
)

// runWatch polls the watched chats and prints new messages until
// interrupted.
func runWatch(ctx context.Context, sess *whatsdump.Session, p params) error {
	if len(p.jids) == 0 {
		fmt.Fprintln(os.Stderr, "Watching the most recently active chats, press Ctrl+C to stop.")
	} else {
		fmt.Fprintf(os.Stderr, "Watching %d chat(s), press Ctrl+C to stop.\n", len(p.jids))
	}
	return sess.Watch(ctx, p.jids, p.watchInterval, func(chat types.Chat, mm types.Messages) error {
		for _, m := range mm {
			fmt.Printf("%s %s\n", color.CyanString("%s", chat.String()), messageLine(m))
		}
		return nil
	})
}
