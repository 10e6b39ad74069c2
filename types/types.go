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

// Package types defines the value records that the WhatsApp MCP server
// returns.  All types in this package are immutable snapshots: the client
// holds no authoritative copy of server state, and every call re-fetches.
package types

import "time"

// Chat is a single WhatsApp conversation.  JID is an opaque identifier
// (e.g. "15551234567@s.whatsapp.net" or "...@g.us" for groups) and is
// treated as a black-box key throughout.
type Chat struct {
	JID         string    `json:"jid"`
	Name        string    `json:"name"`
	LastActive  time.Time `json:"last_message_time"`
	LastMessage string    `json:"last_message,omitempty"`
}

func (c Chat) String() string {
	if c.Name == "" {
		return c.JID
	}
	return c.Name + " (" + c.JID + ")"
}

// Chats is a page (or an assembled set) of chats.
type Chats []Chat

// JIDs returns the chat identifiers, deduplicated, in original order.
func (cc Chats) JIDs() []string {
	seen := make(map[string]bool, len(cc))
	out := make([]string, 0, len(cc))
	for _, c := range cc {
		if seen[c.JID] {
			continue
		}
		seen[c.JID] = true
		out = append(out, c.JID)
	}
	return out
}

// Message is a single message within a chat.  Context slices are populated
// only when the caller requested surrounding messages.
type Message struct {
	ID        string    `json:"id"`
	ChatJID   string    `json:"chat_jid,omitempty"`
	Sender    string    `json:"sender_phone_number,omitempty"`
	FromMe    bool      `json:"from_me,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`

	ContextBefore Messages `json:"context_before,omitempty"`
	ContextAfter  Messages `json:"context_after,omitempty"`
}

// Messages is a sequence of messages, normally oldest first.
type Messages []Message

// Newest returns the largest timestamp in the sequence, or the zero time if
// the sequence is empty.
func (mm Messages) Newest() time.Time {
	var max time.Time
	for _, m := range mm {
		if m.Timestamp.After(max) {
			max = m.Timestamp
		}
	}
	return max
}

// Authentication statuses reported by the server.
const (
	AuthAuthenticated = "authenticated"
	AuthPending       = "pending"
	AuthFailed        = "failed"
)

// AuthResult is the outcome of an authentication attempt.  When the server
// requires interactive pairing, Status is [AuthPending] and QRCode carries
// the code the user must scan on their device.
type AuthResult struct {
	Status  string `json:"status"`
	QRCode  string `json:"qr_code,omitempty"`
	Phone   string `json:"phone_number,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pending reports whether the server is waiting for the pairing code to be
// scanned.
func (r AuthResult) Pending() bool { return r.Status == AuthPending || r.QRCode != "" }

// Authenticated reports whether the session is fully authenticated.
func (r AuthResult) Authenticated() bool { return r.Status == AuthAuthenticated }

// ChatInfo is the detailed chat metadata returned by get_chat_info.
type ChatInfo struct {
	Chat
	IsGroup      bool     `json:"is_group,omitempty"`
	Participants []string `json:"participants,omitempty"`
	MessageCount int      `json:"message_count,omitempty"`
}

// Status is the server-side connection snapshot returned by get_status.
type Status struct {
	Connected     bool      `json:"is_connected"`
	Authenticated bool      `json:"is_authenticated"`
	Phone         string    `json:"phone_number,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
}

// ExportResult describes a completed chat export.  Servers either write the
// export themselves and return Path, or return the payload inline in Data,
// in which case the client is responsible for storing it.
type ExportResult struct {
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Data   []byte `json:"data,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// Conversation bundles a chat with its fetched messages.  It is the unit
// written to disk by dump.
type Conversation struct {
	Chat     Chat     `json:"chat"`
	Messages Messages `json:"messages"`
}

func (c Conversation) String() string {
	return c.Chat.JID
}
