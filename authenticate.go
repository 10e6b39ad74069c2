package whatsdump

// In this file: authentication, connection status and chat metadata.

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime/trace"
	"time"

	"github.com/rusq/whatsdump/internal/network"
	"github.com/rusq/whatsdump/types"
)

// authTimeout is the round trip budget for the authenticate call.  Pairing
// waits for the user to scan the QR code, which takes as long as it takes.
const authTimeout = 2 * time.Minute

// phoneRe matches an international phone number, with an optional plus.
var phoneRe = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// Authenticate starts or resumes the WhatsApp pairing.  With an empty phone
// the bridge decides: an already paired bridge reports success, otherwise the
// result is pending and carries a QR code for the user to scan.  A non-empty
// phone requests pairing for that specific number.  A bridge-reported
// failure is returned as [AuthError].
func (s *Session) Authenticate(ctx context.Context, phone string) (*types.AuthResult, error) {
	ctx, task := trace.NewTask(ctx, "Authenticate")
	defer task.End()

	args := make(map[string]any, 1)
	if phone != "" {
		if !phoneRe.MatchString(phone) {
			return nil, &AuthError{Err: fmt.Errorf("invalid phone number %q", phone)}
		}
		args["phone_number"] = phone
	}
	raw, err := s.callToolTimeout(ctx, network.CatGeneric, "authenticate", args, authTimeout)
	if err != nil {
		return nil, err
	}
	res, err := decodeObject[types.AuthResult](raw)
	if err != nil {
		return nil, err
	}
	if res.Status == types.AuthFailed {
		return nil, &AuthError{Err: errors.New(res.Message)}
	}
	return res, nil
}

// Status returns the bridge connection and authentication state.
func (s *Session) Status(ctx context.Context) (*types.Status, error) {
	ctx, task := trace.NewTask(ctx, "Status")
	defer task.End()

	raw, err := s.callTool(ctx, network.CatGeneric, "get_status", nil)
	if err != nil {
		return nil, err
	}
	return decodeObject[types.Status](raw)
}

// ChatInfo returns the metadata of a single chat.  If the bridge does not
// know the chat, the returned error wraps [ErrNotFound].
func (s *Session) ChatInfo(ctx context.Context, jid string) (*types.ChatInfo, error) {
	ctx, task := trace.NewTask(ctx, "ChatInfo")
	defer task.End()

	if jid == "" {
		return nil, errors.New("chat JID is empty")
	}
	raw, err := s.callTool(ctx, network.CatChats, "get_chat_info", map[string]any{"chat_jid": jid})
	if err != nil {
		return nil, asNotFound(err, jid)
	}
	return decodeObject[types.ChatInfo](raw)
}

// Logout asks the bridge to drop the WhatsApp pairing and closes the
// session.
func (s *Session) Logout(ctx context.Context) error {
	ctx, task := trace.NewTask(ctx, "Logout")
	defer task.End()

	if _, err := s.callTool(ctx, network.CatGeneric, "disconnect", nil); err != nil {
		return err
	}
	return s.Close()
}
