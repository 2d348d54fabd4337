package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	split "github.com/nvoskov/chatsplit/internal/core/split_engine"
	"github.com/nvoskov/chatsplit/internal/models"
)

// Render dispatches a sealed chunk to the writer for the format.
// Rendering never mutates or retains the chunk.
func Render(f Format, c split.Chunk, o Options) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(c, o)
	case FormatJSONL:
		return JSONL(c, o)
	case FormatXLSX:
		return XLSX(c, o)
	default:
		return TXT(c), nil
	}
}

// TXT renders the chunk body as a flat word stream: record texts (or
// word-mode tokens) joined by a single space.
func TXT(c split.Chunk) []byte {
	if c.Tokens != nil {
		return []byte(strings.Join(c.Tokens, " "))
	}
	parts := make([]string, 0, len(c.Records))
	for i := range c.Records {
		parts = append(parts, c.Records[i].Text)
	}
	return []byte(strings.Join(parts, " "))
}

// CSV renders one row per record with a header of the enabled columns.
func CSV(c split.Chunk, o Options) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(o.columns()); err != nil {
		return nil, err
	}
	for i := range c.Records {
		if err := w.Write(o.cells(&c.Records[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONL renders one JSON object per line. Absent optional metrics are
// rendered as explicit nulls, never omitted.
func JSONL(c split.Chunk, o Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range c.Records {
		if err := enc.Encode(o.entry(&c.Records[i])); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// XLSX renders the chunk as a single-sheet spreadsheet.
func XLSX(c split.Chunk, o Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Messages"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, 8)
	for _, col := range o.columns() {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i := range c.Records {
		row := make([]interface{}, 0, len(header))
		for _, v := range o.cells(&c.Records[i]) {
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cells renders the enabled fields of one record as cell strings.
func (o Options) cells(m *models.Message) []string {
	row := []string{strconv.FormatInt(m.ID, 10), m.Text}
	if o.IncludeTimestamp {
		row = append(row, m.Timestamp)
	}
	if o.IncludeSender {
		row = append(row, m.SenderID, m.SenderName)
	}
	if o.IncludeReplyID {
		if m.ReplyToID != nil {
			row = append(row, strconv.FormatInt(*m.ReplyToID, 10))
		} else {
			row = append(row, NotAvailable)
		}
	}
	if o.IncludeReactions {
		row = append(row, countCell(m.ViewsCount), countCell(m.ReactionsCount))
	}
	return row
}

// entry renders the enabled fields of one record as a JSONL object.
func (o Options) entry(m *models.Message) map[string]interface{} {
	e := map[string]interface{}{
		"message_id":   m.ID,
		"text_content": m.Text,
	}
	if o.IncludeTimestamp {
		e["timestamp"] = m.Timestamp
	}
	if o.IncludeSender {
		e["sender_id"] = m.SenderID
		e["sender_name"] = m.SenderName
	}
	if o.IncludeReplyID {
		e["reply_to_id"] = nullable(m.ReplyToID != nil, func() interface{} { return *m.ReplyToID })
	}
	if o.IncludeReactions {
		e["views_count"] = nullable(m.ViewsCount != nil, func() interface{} { return *m.ViewsCount })
		e["reactions_count"] = nullable(m.ReactionsCount != nil, func() interface{} { return *m.ReactionsCount })
	}
	return e
}

func nullable(ok bool, v func() interface{}) interface{} {
	if ok {
		return v()
	}
	return nil
}

func countCell(n *uint64) string {
	if n == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%d", *n)
}
