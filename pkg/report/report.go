// Package report writes QC findings to report sinks: flat error tables
// in a GeoPackage, an xlsx workbook, CSV files, a JSON document and a
// parquet file. All of them live under the report directory.
//
// Every sink receives one WriteTable call per table that has findings, in
// table order, followed by Close. Tables without findings are not written.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// Sink receives the findings of each validated table.
type Sink interface {
	WriteTable(ctx context.Context, table string, findings []core.Finding) error
	Close() error
}

// Format names a sink kind.
type Format string

// Supported formats.
const (
	FormatTable   Format = "table"
	FormatSheet   Format = "sheet"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// Formats returns every supported format name, sorted.
func Formats() []string {
	out := []string{string(FormatTable), string(FormatSheet), string(FormatCSV), string(FormatJSON), string(FormatParquet)}
	sort.Strings(out)
	return out
}

// Column headers of the flat error table.
const (
	ColumnID       = "Unique_ID"
	ColumnError    = "Error"
	ColumnComment  = "Comment"
	ColumnResponse = "Response"

	idLength   = 25
	textLength = 254
)

// Options configure the sinks Open builds.
type Options struct {
	// Dir receives every report. It is created when missing.
	Dir string
	// TableSuffix is appended to the table name for the table format.
	TableSuffix string
	Logger      *slog.Logger
}

// Open builds one sink per format and fans out to all of them.
func Open(ctx context.Context, formats []string, opts Options) (Sink, error) {
	if len(formats) == 0 {
		return nil, errors.New("no report format selected")
	}
	if opts.Dir == "" {
		return nil, errors.New("report directory not set")
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var sinks Multi
	for _, f := range formats {
		var (
			s   Sink
			err error
		)
		switch Format(strings.ToLower(strings.TrimSpace(f))) {
		case FormatTable:
			s, err = OpenTableSink(ctx, opts.Dir, opts.TableSuffix, opts.Logger)
		case FormatSheet:
			s = NewSheetSink(opts.Dir)
		case FormatCSV:
			s = NewCSVSink(opts.Dir)
		case FormatJSON:
			s = NewJSONSink(opts.Dir)
		case FormatParquet:
			s, err = NewParquetSink(opts.Dir)
		default:
			err = fmt.Errorf("unknown report format %q (available: %s)", f, strings.Join(Formats(), ", "))
		}
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// Multi fans every call out to each sink in order.
type Multi []Sink

// WriteTable implements Sink.
func (m Multi) WriteTable(ctx context.Context, table string, findings []core.Finding) error {
	for _, s := range m {
		if err := s.WriteTable(ctx, table, findings); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Files lists the report files written by file sinks so far.
func (m Multi) Files() []string {
	var out []string
	for _, s := range m {
		if fs, ok := s.(interface{ Files() []string }); ok {
			out = append(out, fs.Files()...)
		}
	}
	return out
}

// truncate cuts s to n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
