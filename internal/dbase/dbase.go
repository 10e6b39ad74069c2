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

// Package dbase implements the local SQLite archive for dumped chats and
// messages.  Each row keeps the full JSON of the original entity alongside
// the extracted columns, so the archive can always reproduce exactly what
// the server returned.
package dbase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Driver is the database driver name.
const Driver = "sqlite"

var dbInitCommands = []string{
	"PRAGMA journal_mode=WAL",   // enable WAL mode
	"PRAGMA synchronous=NORMAL", // enable synchronous mode
	"PRAGMA foreign_keys=ON",    // enable foreign keys
}

type options struct {
	verbose bool
}

func (o *options) apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

type Option func(*options)

// WithVerbose enables migration logging.
func WithVerbose(v bool) Option {
	return func(o *options) {
		o.verbose = v
	}
}

// Archive is the dump database.  It is safe for concurrent use.
type Archive struct {
	mu       sync.RWMutex
	conn     *sqlx.DB
	canClose bool
	closed   atomic.Bool

	opts options
}

// Open opens (creating it if necessary) the archive database at path and
// brings the schema up to date.
func Open(ctx context.Context, path string, opts ...Option) (*Archive, error) {
	conn, err := sqlx.Open(Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open: %w", err)
	}
	a, err := New(ctx, conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.canClose = true
	return a, nil
}

// New returns a new archive on an existing connection.  Closing the archive
// does not close the connection, that remains the caller's responsibility.
func New(ctx context.Context, conn *sqlx.DB, opts ...Option) (*Archive, error) {
	var options options
	options.apply(opts...)

	if err := initDB(ctx, conn); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if err := Migrate(ctx, conn.DB, options.verbose); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &Archive{
		conn: conn,
		opts: options,
	}, nil
}

// initDB runs the initialisation commands on the database.
func initDB(ctx context.Context, conn *sqlx.DB) error {
	for _, q := range dbInitCommands {
		if _, err := conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("initDB: %w", err)
		}
	}
	return nil
}

// Close releases the database.  It is safe to call more than once.
func (a *Archive) Close() error {
	if swapped := a.closed.CompareAndSwap(false, true); !swapped {
		return nil
	}
	if !a.canClose {
		return nil
	}
	return a.conn.Close()
}
