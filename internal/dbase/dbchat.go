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
package dbase

import (
	"context"
	"fmt"

	"github.com/rusq/whatsdump/types"
)

type dbChat struct {
	JID        string  `db:"JID"`
	Name       *string `db:"NAME"`
	LastActive int64   `db:"LAST_ACTIVE"`
	LastMsg    *string `db:"LAST_MSG"`
	Data       []byte  `db:"DATA"`
}

func newDBChat(c types.Chat) (*dbChat, error) {
	data, err := marshal(c)
	if err != nil {
		return nil, fmt.Errorf("insertChat marshal: %w", err)
	}
	return &dbChat{
		JID:        c.JID,
		Name:       orNull(c.Name != "", c.Name),
		LastActive: c.LastActive.UnixMilli(),
		LastMsg:    orNull(c.LastMessage != "", c.LastMessage),
		Data:       data,
	}, nil
}

func (dbc dbChat) tablename() string {
	return "CHAT"
}

func (dbc dbChat) columns() []string {
	return []string{
		"JID",
		"NAME",
		"LAST_ACTIVE",
		"LAST_MSG",
		"DATA",
	}
}

func (dbc dbChat) values() []any {
	return []any{
		dbc.JID,
		dbc.Name,
		dbc.LastActive,
		dbc.LastMsg,
		dbc.Data,
	}
}

func (dbc dbChat) Val() (types.Chat, error) {
	return unmarshalt[types.Chat](dbc.Data)
}

const chatUpsertClause = " ON CONFLICT (JID) DO UPDATE SET" +
	" NAME=excluded.NAME, LAST_ACTIVE=excluded.LAST_ACTIVE," +
	" LAST_MSG=excluded.LAST_MSG, DATA=excluded.DATA"

// InsertChat saves the chat, updating the existing row if the chat is
// already archived.
func (a *Archive) InsertChat(ctx context.Context, c types.Chat) error {
	dbc, err := newDBChat(c)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.conn.ExecContext(ctx, insertStmt(dbc, "")+chatUpsertClause, dbc.values()...); err != nil {
		return fmt.Errorf("insertChat: %w", err)
	}
	return nil
}

// Chats returns all archived chats, most recently active first.
func (a *Archive) Chats(ctx context.Context) (types.Chats, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	const stmt = "SELECT JID, NAME, LAST_ACTIVE, LAST_MSG, DATA FROM CHAT ORDER BY LAST_ACTIVE DESC, JID"
	it, err := query[dbChat](ctx, a.conn, stmt)
	if err != nil {
		return nil, fmt.Errorf("chats: %w", err)
	}
	var cc types.Chats
	for dbc, err := range it {
		if err != nil {
			return nil, fmt.Errorf("chats: %w", err)
		}
		c, err := dbc.Val()
		if err != nil {
			return nil, fmt.Errorf("chats unmarshal: %w", err)
		}
		cc = append(cc, c)
	}
	return cc, nil
}

// ChatCount returns the number of archived chats.
func (a *Archive) ChatCount(ctx context.Context) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var n int64
	if err := a.conn.QueryRowxContext(ctx, "SELECT COUNT(*) FROM CHAT").Scan(&n); err != nil {
		return 0, fmt.Errorf("chatCount: %w", err)
	}
	return n, nil
}
