package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/whatsdump/types"
)

var testChats = types.Chats{
	{JID: "15551230001@s.whatsapp.net", Name: "Alice", LastMessage: "see you\nthere"},
	{JID: "120363001122334455@g.us", Name: "Weekend Hikes"},
}

func Test_formatChats(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, formatChats(&buf, testChats, "text"))
		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 3, "a header and a line per chat")
		assert.Contains(t, lines[0], "JID")
		assert.Contains(t, lines[1], "15551230001@s.whatsapp.net")
		assert.Contains(t, lines[1], "see you there", "newlines are collapsed")
		assert.Contains(t, lines[2], "Weekend Hikes")
	})
	t.Run("json", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, formatChats(&buf, testChats, "json"))
		assert.JSONEq(t, `[
			{"jid":"15551230001@s.whatsapp.net","name":"Alice","last_message_time":"0001-01-01T00:00:00Z","last_message":"see you\nthere"},
			{"jid":"120363001122334455@g.us","name":"Weekend Hikes","last_message_time":"0001-01-01T00:00:00Z"}
		]`, buf.String())
	})
	t.Run("empty format is text", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, formatChats(&buf, testChats, ""))
		assert.Contains(t, buf.String(), "Last Active")
	})
	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, formatChats(&strings.Builder{}, testChats, "yaml"))
	})
}

func Test_formatMessages(t *testing.T) {
	mm := types.Messages{
		{ID: "A1", ChatJID: "15551230001@s.whatsapp.net", Sender: "+15551230001", Timestamp: time.Date(2025, 5, 4, 16, 30, 0, 0, time.UTC), Text: "hello"},
		{ID: "A2", ChatJID: "15551230001@s.whatsapp.net", FromMe: true, Timestamp: time.Date(2025, 5, 4, 16, 31, 0, 0, time.UTC), Text: "hi"},
	}
	t.Run("text", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, formatMessages(&buf, mm, "text"))
		want := "[2025-05-04 16:30:00] +15551230001: hello\n[2025-05-04 16:31:00] me: hi\n"
		assert.Equal(t, want, buf.String())
	})
	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, formatMessages(&strings.Builder{}, mm, "yaml"))
	})
}

func Test_messageLine(t *testing.T) {
	ts := time.Date(2025, 5, 4, 16, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		m    types.Message
		want string
	}{
		{
			"named sender",
			types.Message{Sender: "+15551230002", Timestamp: ts, Text: "hello"},
			"[2025-05-04 16:30:00] +15551230002: hello",
		},
		{
			"own message",
			types.Message{Sender: "+15551230001", FromMe: true, Timestamp: ts, Text: "hi"},
			"[2025-05-04 16:30:00] me: hi",
		},
		{
			"unknown sender",
			types.Message{Timestamp: ts, Text: "who dis"},
			"[2025-05-04 16:30:00] ?: who dis",
		},
		{
			"multiline text",
			types.Message{Sender: "+15551230002", Timestamp: ts, Text: "one\ntwo\tthree"},
			"[2025-05-04 16:30:00] +15551230002: one two three",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageLine(tt.m); got != tt.want {
				t.Errorf("messageLine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_lastActive(t *testing.T) {
	assert.Equal(t, "-", lastActive(time.Time{}))
	assert.NotEqual(t, "-", lastActive(time.Now().Add(-2*time.Hour)))
}
