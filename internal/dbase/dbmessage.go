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
	"database/sql"
	"fmt"
	"iter"
	"time"

	"github.com/rusq/whatsdump/types"
)

type dbMessage struct {
	ID      string  `db:"ID"`
	ChatJID string  `db:"CHAT_JID"`
	TS      int64   `db:"TS"`
	Sender  *string `db:"SENDER"`
	FromMe  bool    `db:"FROM_ME"`
	Text    string  `db:"TXT"`
	Data    []byte  `db:"DATA"`
}

func newDBMessage(jid string, m types.Message) (*dbMessage, error) {
	if m.ChatJID == "" {
		m.ChatJID = jid
	}
	data, err := marshal(m)
	if err != nil {
		return nil, fmt.Errorf("insertMessages marshal: %w", err)
	}
	return &dbMessage{
		ID:      m.ID,
		ChatJID: jid,
		TS:      m.Timestamp.UnixMilli(),
		Sender:  orNull(m.Sender != "", m.Sender),
		FromMe:  m.FromMe,
		Text:    m.Text,
		Data:    data,
	}, nil
}

func (dbm dbMessage) tablename() string {
	return "MESSAGE"
}

func (dbm dbMessage) columns() []string {
	return []string{
		"ID",
		"CHAT_JID",
		"TS",
		"SENDER",
		"FROM_ME",
		"TXT",
		"DATA",
	}
}

func (dbm dbMessage) values() []any {
	return []any{
		dbm.ID,
		dbm.ChatJID,
		dbm.TS,
		dbm.Sender,
		dbm.FromMe,
		dbm.Text,
		dbm.Data,
	}
}

func (dbm dbMessage) Val() (types.Message, error) {
	return unmarshalt[types.Message](dbm.Data)
}

// InsertMessages saves the messages for the chat jid, skipping the ones that
// are already archived.  It returns the number of rows actually added.  The
// chat must have been inserted first.
func (a *Archive) InsertMessages(ctx context.Context, jid string, mm types.Messages) (int64, error) {
	if len(mm) == 0 {
		return 0, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insertMessages begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertStmt(dbMessage{}, "OR IGNORE"))
	if err != nil {
		return 0, fmt.Errorf("insertMessages prepare: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, m := range mm {
		dbm, err := newDBMessage(jid, m)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, dbm.values()...)
		if err != nil {
			return 0, fmt.Errorf("insertMessages exec: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insertMessages rows affected: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insertMessages commit: %w", err)
	}
	return total, nil
}

// Messages returns an iterator over the archived messages of the chat jid,
// oldest first.
func (a *Archive) Messages(ctx context.Context, jid string) (iter.Seq2[types.Message, error], error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	const stmt = "SELECT ID, CHAT_JID, TS, SENDER, FROM_ME, TXT, DATA FROM MESSAGE WHERE CHAT_JID = ? ORDER BY TS, ID"
	it, err := query[dbMessage](ctx, a.conn, stmt, jid)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	iterFn := func(yield func(types.Message, error) bool) {
		for dbm, err := range it {
			if err != nil {
				yield(types.Message{}, err)
				return
			}
			m, err := dbm.Val()
			if err != nil {
				yield(types.Message{}, fmt.Errorf("messages unmarshal: %w", err))
				return
			}
			if m.ChatJID == "" {
				m.ChatJID = dbm.ChatJID
			}
			if !yield(m, nil) {
				return
			}
		}
	}
	return iterFn, nil
}

// MessageCount returns the number of archived messages in the chat jid.
func (a *Archive) MessageCount(ctx context.Context, jid string) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var n int64
	if err := a.conn.QueryRowxContext(ctx, "SELECT COUNT(*) FROM MESSAGE WHERE CHAT_JID = ?", jid).Scan(&n); err != nil {
		return 0, fmt.Errorf("messageCount: %w", err)
	}
	return n, nil
}

// LatestTimestamp returns the timestamp of the newest archived message in
// the chat jid, or the zero time if the chat has no messages.  Dump uses it
// to resume extraction from where the previous run stopped.
func (a *Archive) LatestTimestamp(ctx context.Context, jid string) (time.Time, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var ts sql.NullInt64
	if err := a.conn.QueryRowxContext(ctx, "SELECT MAX(TS) FROM MESSAGE WHERE CHAT_JID = ?", jid).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("latestTimestamp: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(ts.Int64).UTC(), nil
}
