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

package mcpclient

import (
	"encoding/json"
	"strings"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// In this file: conversion of tool results into raw payloads, and the
// classification of error results.  Both transports funnel through here, so
// the caller sees the same error taxonomy regardless of the wire.

// textContent returns the text of the first text item of a result.  The
// servers we talk to put the whole payload into a single text item; anything
// else (images, resources) is not ours to interpret.
func textContent(cc []mcplib.Content) string {
	for _, c := range cc {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// payloadFromText converts a decoded tool result into the raw payload that
// the domain layer unmarshals.  An error result never produces a payload.
func payloadFromText(tool, text string, isError bool) (json.RawMessage, error) {
	if isError {
		return nil, classifyToolError(tool, text)
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	// Plain text results are re-encoded so that the caller always gets
	// valid JSON.
	return json.Marshal(text)
}

// errBody is the error shape that bridge servers emit inside the text item.
// All fields are optional, the zero value means "just a message string".
type errBody struct {
	Code       int     `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}

// classifyToolError maps the text of an error result to a typed error.
// Throttling is recognised both from the structured retry_after field and
// from the usual message phrases, and is returned as [RateLimitedError] so
// that the retry layer can back off instead of failing.
func classifyToolError(tool, text string) error {
	var body errBody
	if json.Valid([]byte(text)) {
		if err := json.Unmarshal([]byte(text), &body); err != nil {
			body = errBody{}
		}
	}
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = text
	}
	if body.RetryAfter > 0 {
		return &RateLimitedError{RetryAfter: time.Duration(body.RetryAfter * float64(time.Second))}
	}
	if isThrottleMsg(msg) {
		return &RateLimitedError{}
	}
	return &ToolError{Tool: tool, Code: body.Code, Message: msg}
}

func isThrottleMsg(s string) bool {
	s = strings.ToLower(s)
	for _, phrase := range []string{"rate limit", "too many requests", "ratelimited", "429"} {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}
