package whatsdump

// In this file: helpers shared by the tool result decoders.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rusq/whatsdump/internal/mcpclient"
)

// decodeList decodes a payload that is either a JSON object with the list
// under key, or a bare JSON array.  Bridge implementations differ, both
// shapes are in the wild.  An object without the key decodes to an empty
// list.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	if isArray(raw) {
		var vv []T
		if err := json.Unmarshal(raw, &vv); err != nil {
			return nil, fmt.Errorf("error decoding the result list: %w", err)
		}
		return vv, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("error decoding the result envelope: %w", err)
	}
	inner, ok := envelope[key]
	if !ok {
		return nil, nil
	}
	var vv []T
	if err := json.Unmarshal(inner, &vv); err != nil {
		return nil, fmt.Errorf("error decoding %q: %w", key, err)
	}
	return vv, nil
}

// decodeObject decodes a single-object payload.
func decodeObject[T any](raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("error decoding the result: %w", err)
	}
	return &v, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// asNotFound translates the bridge's "unknown chat" tool failure into
// [ErrNotFound].  Any other error is returned unchanged.
func asNotFound(err error, jid string) error {
	var te *mcpclient.ToolError
	if !errors.As(err, &te) {
		return err
	}
	msg := strings.ToLower(te.Message)
	for _, phrase := range []string{"not found", "unknown chat", "no such chat"} {
		if strings.Contains(msg, phrase) {
			return fmt.Errorf("chat %q: %w", jid, ErrNotFound)
		}
	}
	return err
}
