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
package fixtures

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rusq/whatsdump/types"
)

// randString generates a random string of length n.
func randString(n int) string {
	var letter = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

	b := make([]rune, n)
	for i := range b {
		b[i] = letter[rand.Intn(len(letter))]
	}
	return string(b)
}

// GenerateTestChats generates n chats with unique JIDs, most recently
// active first.
func GenerateTestChats(n int) types.Chats {
	base := time.Date(2025, 5, 4, 16, 0, 0, 0, time.UTC)
	cc := make(types.Chats, n)
	for i := range cc {
		cc[i] = types.Chat{
			JID:         fmt.Sprintf("1555%07d@s.whatsapp.net", i),
			Name:        randString(8),
			LastActive:  base.Add(-time.Duration(i) * time.Minute),
			LastMessage: randString(24),
		}
	}
	return cc
}

// GenerateTestMessages generates n messages for the chat jid, evenly spread
// between start and end, oldest first.
func GenerateTestMessages(n int, jid string, start, end time.Time) types.Messages {
	step := time.Duration(0)
	if n > 1 {
		step = end.Sub(start) / time.Duration(n-1)
	}
	mm := make(types.Messages, n)
	for i := range mm {
		mm[i] = types.Message{
			ID:        fmt.Sprintf("3EB0%016X", rand.Int63()),
			ChatJID:   jid,
			Sender:    "15551230001",
			FromMe:    i%2 == 1,
			Timestamp: start.Add(time.Duration(i) * step),
			Text:      randString(32),
		}
	}
	return mm
}

