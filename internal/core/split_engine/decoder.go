package split_engine

import (
	"encoding/json"
	"strings"
)

// DecodeText turns a raw field value into a flat text string.
//
// A string-shaped value is unescaped per JSON string rules. An
// array-shaped value is decoded element by element: primitive strings
// are taken verbatim, objects contribute their nested "text", anything
// else contributes nothing; elements concatenate in order with no
// separator. Any decode failure yields ""; the caller discards the
// occurrence instead of aborting the stream.
func DecodeText(m Match) string {
	switch m.Shape {
	case ShapeString:
		var s string
		if err := json.Unmarshal(m.Raw, &s); err != nil {
			return ""
		}
		return s

	case ShapeArray:
		var parts []json.RawMessage
		if err := json.Unmarshal(m.Raw, &parts); err != nil {
			return ""
		}
		var b strings.Builder
		for _, p := range parts {
			var s string
			if json.Unmarshal(p, &s) == nil {
				b.WriteString(s)
				continue
			}
			var seg struct {
				Text string `json:"text"`
			}
			if json.Unmarshal(p, &seg) == nil {
				b.WriteString(seg.Text)
			}
		}
		return b.String()
	}
	return ""
}
