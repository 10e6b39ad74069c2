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

package main

// In this file: mode dispatch and the helpers shared by the modes.

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rusq/fsadapter"
	"golang.org/x/term"

	"github.com/rusq/whatsdump"
)

// runApp runs the mode selected by the flags.  Modes that do not need a
// bridge session are handled first.
func runApp(ctx context.Context, lg *slog.Logger, p params) error {
	if p.sampleConfig {
		f, err := createFile(p.output)
		if err != nil {
			return err
		}
		defer f.Close()
		return whatsdump.WriteSampleConfig(f)
	}

	opts := []whatsdump.Option{
		whatsdump.WithLogger(lg),
		whatsdump.WithLimits(p.cfg.Limits),
	}
	if p.needFS() {
		fsa, err := fsadapter.New(p.base)
		if err != nil {
			return err
		}
		defer func() {
			if err := fsa.Close(); err != nil {
				lg.Warn("failed to close the filesystem", "error", err)
			}
		}()
		opts = append(opts, whatsdump.WithFilesystem(fsa))
	}

	sess, err := whatsdump.New(ctx, p.cfg.Server, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			lg.Warn("error closing the session", "error", err)
		}
	}()

	start := time.Now()
	switch {
	case p.auth:
		err = runAuth(ctx, sess, p)
	case p.logout:
		err = runLogout(ctx, sess)
	case p.status:
		err = runStatus(ctx, sess, p)
	case p.listChats:
		err = runListChats(ctx, sess, p)
	case p.info:
		err = runInfo(ctx, sess, p)
	case p.search != "":
		err = runSearch(ctx, sess, p)
	case p.export != "":
		err = runExport(ctx, sess, p)
	case p.watch:
		err = runWatch(ctx, sess, p)
	default:
		err = runDump(ctx, lg, sess, p)
	}
	if err != nil {
		return err
	}

	lg.Info("completed", "took", time.Since(start).Truncate(time.Millisecond))
	return nil
}

// needFS reports whether the selected mode writes conversation files through
// the filesystem adapter.
func (p *params) needFS() bool {
	switch {
	case p.auth, p.status, p.logout, p.listChats, p.info, p.watch:
		return false
	case p.search != "":
		return false
	case p.export != "":
		return true
	}
	return !p.noFiles // the dump mode
}

// createFile creates the file, or opens the Stdout, if the filename is "-".
func createFile(filename string) (f io.WriteCloser, err error) {
	if filename == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(filename)
}

// nopCloser keeps Stdout open when the output writer is closed.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// isInteractive reports whether both ends of the terminal are attached to a
// console, so that it is safe to prompt and draw progress.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd())) && os.Getenv("TERM") != "dumb"
}
