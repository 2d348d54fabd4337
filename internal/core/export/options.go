package export

import "strings"

// Format selects the rendering of a sealed chunk.
type Format string

const (
	FormatTXT   Format = "txt"
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat normalizes a user-supplied format selector; anything
// unrecognized falls back to plain text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV
	case "jsonl":
		return FormatJSONL
	case "xlsx", "excel":
		return FormatXLSX
	default:
		return FormatTXT
	}
}

// Ext is the part-name extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// Structured reports whether the format renders one entry per record.
func (f Format) Structured() bool {
	return f != FormatTXT
}

// Options mirrors the run's metric-inclusion toggles. Each is
// independent; the rendered schema within one run never varies.
type Options struct {
	IncludeTimestamp bool
	IncludeSender    bool
	IncludeReactions bool
	IncludeReplyID   bool
}

// MetricsEnabled reports whether any toggle is on. A metrics-enabled
// run emits both a plain-text part and a structured part per chunk.
func (o Options) MetricsEnabled() bool {
	return o.IncludeTimestamp || o.IncludeSender || o.IncludeReactions || o.IncludeReplyID
}

// NotAvailable is the explicit marker rendered for an absent optional
// metric in cell-oriented formats, keeping the schema shape constant
// across records in the same run.
const NotAvailable = "n/a"

// columns returns the enabled field names in stable order.
func (o Options) columns() []string {
	cols := []string{"message_id", "text_content"}
	if o.IncludeTimestamp {
		cols = append(cols, "timestamp")
	}
	if o.IncludeSender {
		cols = append(cols, "sender_id", "sender_name")
	}
	if o.IncludeReplyID {
		cols = append(cols, "reply_to_id")
	}
	if o.IncludeReactions {
		cols = append(cols, "views_count", "reactions_count")
	}
	return cols
}
