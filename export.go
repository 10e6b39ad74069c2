package whatsdump

// In this file: single chat export.

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/trace"
	"strings"
	"time"

	"github.com/rusq/whatsdump/internal/network"
	"github.com/rusq/whatsdump/types"
)

// ExportFormat is the chat export file format.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatText ExportFormat = "txt"
)

// ErrUnsupportedFormat is returned for export formats the bridge does not
// produce.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseExportFormat normalises the format string.  Empty means [FormatJSON].
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ExportParams are the optional parameters of [Session.ExportChat].
type ExportParams struct {
	// IncludeMedia requests media attachments along with the text.
	IncludeMedia bool
	// After and Before bound the exported date range.  Zero time means
	// unbounded.
	After  time.Time
	Before time.Time
}

// exportTimeout is the round trip budget for the export call, which may take
// the bridge minutes to prepare.
const exportTimeout = 5 * time.Minute

// ExportChat asks the bridge to export the complete chat in the given
// format.  The format is checked before any network round trip, an unknown
// one fails with [ErrUnsupportedFormat].
func (s *Session) ExportChat(ctx context.Context, jid string, format ExportFormat, p ExportParams) (*types.ExportResult, error) {
	ctx, task := trace.NewTask(ctx, "ExportChat")
	defer task.End()

	if jid == "" {
		return nil, errors.New("chat JID is empty")
	}
	format, err := ParseExportFormat(string(format))
	if err != nil {
		return nil, err
	}
	args := map[string]any{
		"chat_jid":      jid,
		"format":        string(format),
		"include_media": p.IncludeMedia,
	}
	if !p.After.IsZero() || !p.Before.IsZero() {
		dateRange := make(map[string]string, 2)
		if !p.After.IsZero() {
			dateRange["start"] = p.After.Format(time.RFC3339)
		}
		if !p.Before.IsZero() {
			dateRange["end"] = p.Before.Format(time.RFC3339)
		}
		args["date_range"] = dateRange
	}
	raw, err := s.callToolTimeout(ctx, network.CatGeneric, "export_chat", args, exportTimeout)
	if err != nil {
		return nil, asNotFound(err, jid)
	}
	res, err := decodeObject[types.ExportResult](raw)
	if err != nil {
		return nil, err
	}
	if res.Format == "" {
		res.Format = string(format)
	}
	return res, nil
}

// WriteExport stores an inline export result on the session filesystem and
// returns the file name.  If the bridge has already written the export
// server side, the server path is returned as is and nothing is written.
// Empty name derives the file name from the chat JID and the format.
func (s *Session) WriteExport(jid string, res *types.ExportResult, name string) (string, error) {
	if res == nil {
		return "", errors.New("nil export result")
	}
	if res.Path != "" && len(res.Data) == 0 {
		return res.Path, nil
	}
	if s.fs == nil {
		return "", errors.New("no filesystem adapter, use WithFilesystem")
	}
	if name == "" {
		name = exportName(jid, res.Format)
	}
	if err := s.fs.WriteFile(name, res.Data, 0o644); err != nil {
		return "", fmt.Errorf("error writing the export: %w", err)
	}
	return name, nil
}

// exportName derives a safe file name from the chat JID.
func exportName(jid, format string) string {
	base := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(jid)
	if format == "" {
		format = string(FormatJSON)
	}
	return base + "." + format
}
