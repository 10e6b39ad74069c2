package fixtures

import "encoding/json"

// Load loads a json data into T, or panics.
func Load[T any](js string) T {
	var ret T
	if err := json.Unmarshal([]byte(js), &ret); err != nil {
		panic(err)
	}
	return ret
}

// LoadPtr loads a json data into *T, or panics.
func LoadPtr[T any](js string) *T {
	v := Load[T](js)
	return &v
}

const (
	TestAuthToken = "wad-8888888888888-fffffffffffffffa915fe069d70a8ad81743b0ec"

	TestChatJID  = "15551230001@s.whatsapp.net"
	TestGroupJID = "120363001122334455@g.us"
)

// ChatJSON is a single chat record as returned by list_chats.
const ChatJSON = `{
	"jid": "15551230001@s.whatsapp.net",
	"name": "Alice",
	"last_message_time": "2025-05-04T16:33:00-04:00",
	"last_message": "Thanks! Do they also offer home insurance?"
}`

// ChatsPageJSON is the enveloped form of a list_chats response.
const ChatsPageJSON = `{
	"chats": [
		{
			"jid": "15551230001@s.whatsapp.net",
			"name": "Alice",
			"last_message_time": "2025-05-04T16:33:00-04:00",
			"last_message": "Thanks! Do they also offer home insurance?"
		},
		{
			"jid": "120363001122334455@g.us",
			"name": "Weekend Hikes",
			"last_message_time": "2025-05-03T09:12:44-04:00"
		}
	],
	"total": 2
}`

// ChatsArrayJSON is the bare-array form of a list_chats response that some
// server versions return.
const ChatsArrayJSON = `[
	{
		"jid": "15551230001@s.whatsapp.net",
		"name": "Alice",
		"last_message_time": "2025-05-04T16:33:00-04:00"
	},
	{
		"jid": "120363001122334455@g.us",
		"name": "Weekend Hikes",
		"last_message_time": "2025-05-03T09:12:44-04:00"
	}
]`

// MessageJSON is a single message record as returned by list_messages.
const MessageJSON = `{
	"id": "3EB0D14C7A2B9D11A5C0",
	"from_me": false,
	"timestamp": "2025-05-04T16:30:00-04:00",
	"text": "I'm looking for a good insurance provider for my new car",
	"sender_phone_number": "15551230001"
}`

// MessageWithContextJSON is a message with the surrounding context populated
// (include_context=true).
const MessageWithContextJSON = `{
	"id": "3EB0D14C7A2B9D11A5C1",
	"from_me": true,
	"timestamp": "2025-05-04T16:31:00-04:00",
	"text": "I can recommend XYZ Insurance, they have great rates",
	"sender_phone_number": "15559870002",
	"context_before": [
		{"id": "3EB0D14C7A2B9D11A5C0", "timestamp": "2025-05-04T16:30:00-04:00", "text": "context before"}
	],
	"context_after": [
		{"id": "3EB0D14C7A2B9D11A5C2", "timestamp": "2025-05-04T16:32:00-04:00", "text": "context after"}
	]
}`

// MessagesPageJSON is the enveloped form of a list_messages response.
const MessagesPageJSON = `{
	"messages": [
		{
			"id": "3EB0D14C7A2B9D11A5C0",
			"from_me": false,
			"timestamp": "2025-05-04T16:30:00-04:00",
			"text": "I'm looking for a good insurance provider for my new car",
			"sender_phone_number": "15551230001"
		},
		{
			"id": "3EB0D14C7A2B9D11A5C1",
			"from_me": true,
			"timestamp": "2025-05-04T16:31:00-04:00",
			"text": "I can recommend XYZ Insurance, they have great rates",
			"sender_phone_number": "15559870002"
		}
	]
}`

// AuthPendingJSON is the authenticate response when the device must scan a
// pairing code.
const AuthPendingJSON = `{
	"status": "pending",
	"qr_code": "2@j9Zxb1EknVQ+HnvEyyyKq3Rt7kDMGUqnrZKbQ0oLXVI=,KjQwFgJ7...",
	"message": "scan the code with the WhatsApp app"
}`

// AuthOKJSON is the authenticate response for an established session.
const AuthOKJSON = `{
	"status": "authenticated",
	"phone_number": "+15551230001"
}`

// StatusJSON is a get_status response.
const StatusJSON = `{
	"is_connected": true,
	"is_authenticated": true,
	"phone_number": "+15551230001",
	"last_activity": "2025-05-04T16:33:27-04:00"
}`

// ChatInfoJSON is a get_chat_info response for a group chat.
const ChatInfoJSON = `{
	"jid": "120363001122334455@g.us",
	"name": "Weekend Hikes",
	"last_message_time": "2025-05-03T09:12:44-04:00",
	"is_group": true,
	"participants": ["15551230001@s.whatsapp.net", "15559870002@s.whatsapp.net"],
	"message_count": 1337
}`

// ExportPathJSON is an export_chat response where the server wrote the file
// itself.
const ExportPathJSON = `{
	"format": "json",
	"path": "/data/exports/15551230001.json",
	"size": 149237
}`

// ExportInlineJSON is an export_chat response with the payload returned
// inline.
const ExportInlineJSON = `{
	"format": "txt",
	"data": "WzIwMjUtMDUtMDRdIEFsaWNlOiBoZXkK",
	"size": 28
}`
