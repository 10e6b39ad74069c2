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

// In this file: the bulk dump and single chat export modes.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/rusq/whatsdump"
	"github.com/rusq/whatsdump/internal/dbase"
	"github.com/rusq/whatsdump/types"
)

// runDump extracts the chats given on the command line, or every chat when
// none are given.
func runDump(ctx context.Context, lg *slog.Logger, sess *whatsdump.Session, p params) error {
	var opts []whatsdump.DumpOption
	if p.noFiles {
		opts = append(opts, whatsdump.DumpNoFiles())
	}
	if p.dbFile != "" {
		arc, err := dbase.Open(ctx, p.dbFile)
		if err != nil {
			return fmt.Errorf("error opening the archive: %w", err)
		}
		defer func() {
			if err := arc.Close(); err != nil {
				lg.Warn("error closing the archive", "error", err)
			}
		}()
		opts = append(opts, whatsdump.DumpToArchive(arc))
	}

	var bar *progressbar.ProgressBar
	if isInteractive() && !p.verbose {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("dumping"),
			progressbar.OptionSpinnerType(8),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		_ = bar.RenderBlank()
		opts = append(opts, whatsdump.DumpProgress(func(chat types.Chat, added int64) {
			bar.Describe(trunc(chat.String(), 40))
			_ = bar.Add(1)
		}))
	} else {
		opts = append(opts, whatsdump.DumpProgress(func(chat types.Chat, added int64) {
			lg.Info("chat done", "chat", chat.JID, "new_messages", added)
		}))
	}

	res, err := sess.Dump(ctx, p.jids, opts...)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Dumped %s message(s) from %s chat(s) in %s.\n",
		humanize.Comma(res.Messages), humanize.Comma(int64(res.Chats)), res.Took.Truncate(time.Millisecond))
	return nil
}

// runExport asks the bridge to export the single chat given on the command
// line and stores the result under the name given with -export.
func runExport(ctx context.Context, sess *whatsdump.Session, p params) error {
	format, err := whatsdump.ParseExportFormat(p.format)
	if err != nil {
		return err
	}
	jid := p.jids[0]
	res, err := sess.ExportChat(ctx, jid, format, whatsdump.ExportParams{
		IncludeMedia: p.media,
		After:        time.Time(p.oldest),
		Before:       time.Time(p.latest),
	})
	if err != nil {
		return err
	}
	name, err := sess.WriteExport(jid, res, p.export)
	if err != nil {
		return err
	}
	if res.Path != "" && len(res.Data) == 0 {
		fmt.Fprintf(os.Stderr, "The bridge wrote the export to %q on the server.\n", name)
		return nil
	}
	size := res.Size
	if size == 0 {
		size = int64(len(res.Data))
	}
	fmt.Fprintf(os.Stderr, "Export of %s saved to %q (%s).\n", jid, name, humanize.Bytes(uint64(size)))
	return nil
}
