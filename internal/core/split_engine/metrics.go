package split_engine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Metrics carries everything the context window yielded for one match.
// Pointer fields stay nil when the counter was not found.
type Metrics struct {
	ID         int64
	Timestamp  string
	SenderID   string
	SenderName string
	ReplyToID  *int64
	Views      *uint64
	Reactions  *uint64
}

// ExtractMetrics pulls optional engagement counters and identity fields
// out of the bytes surrounding a match. Every lookup is best-effort: a
// parse failure is the same as "not found" and never raises. keyOff is
// the matched key's position inside win. Identity fields precede the
// body field in the wire layout, so their lookups prefer the nearest
// occurrence before the key; engagement counters trail it, so theirs
// prefer the first occurrence after. The other direction is always the
// fallback.
func ExtractMetrics(win []byte, keyOff int) Metrics {
	var m Metrics

	if v := lookupNear(win, keyOff, "id"); v != nil {
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			m.ID = n
		}
	}
	m.Timestamp = timestampIn(win, keyOff)
	m.SenderID, m.SenderName = senderIn(win, keyOff)
	m.ReplyToID = intField(win, keyOff, "reply_to_message_id", "reply_to_id")
	m.Views = counterIn(win, keyOff, "views", "views_count")
	m.Reactions = reactionTotal(win, keyOff)
	return m
}

// counterIn returns the first key's numeric value, falling back to the
// alternates in order; nil when none parses. Counters trail the body
// field in the wire layout, so the forward direction is searched first.
func counterIn(win []byte, keyOff int, keys ...string) *uint64 {
	for _, k := range keys {
		if v := lookupAfter(win, keyOff, k); v != nil {
			if n, err := strconv.ParseUint(string(v), 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

func intField(win []byte, keyOff int, keys ...string) *int64 {
	for _, k := range keys {
		if v := lookupNear(win, keyOff, k); v != nil {
			if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// reactionTotal prefers an itemized reaction list, summing per-type
// counts with a missing count worth 1; a flat reactions_count field is
// the fallback; absent otherwise.
func reactionTotal(win []byte, keyOff int) *uint64 {
	if v := lookupAfter(win, keyOff, "reactions"); len(v) > 0 && v[0] == '[' {
		var entries []json.RawMessage
		if json.Unmarshal(v, &entries) == nil {
			var total uint64
			for _, e := range entries {
				var entry struct {
					Count *uint64 `json:"count"`
				}
				if len(e) > 0 && e[0] == '{' && json.Unmarshal(e, &entry) == nil && entry.Count != nil {
					total += *entry.Count
				} else {
					total++
				}
			}
			return &total
		}
	}
	return counterIn(win, keyOff, "reactions_count")
}

// timestampIn reads "date" (or "timestamp"): a quoted value is used
// verbatim, a numeric value is treated as a Unix epoch.
func timestampIn(win []byte, keyOff int) string {
	v := lookupNear(win, keyOff, "date")
	if v == nil {
		v = lookupNear(win, keyOff, "timestamp")
	}
	if len(v) == 0 {
		return ""
	}
	if v[0] == '"' {
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
		return ""
	}
	if sec, err := strconv.ParseInt(string(v), 10, 64); err == nil {
		return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05")
	}
	return ""
}

func senderIn(win []byte, keyOff int) (id, name string) {
	if v := lookupNear(win, keyOff, "from_id"); v != nil {
		id = scalarString(v)
	} else if v := lookupNear(win, keyOff, "sender_id"); v != nil {
		id = scalarString(v)
	}
	for _, k := range []string{"from_name", "sender", "forward_sender_name", "from"} {
		if v := lookupNear(win, keyOff, k); len(v) > 0 && v[0] == '"' {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				name = s
				break
			}
		}
	}
	if name == "" {
		name = id
	}
	return id, name
}

// scalarString renders a string, number, or id-bearing object value as
// a plain identifier string; "" when nothing usable is present.
func scalarString(v []byte) string {
	switch v[0] {
	case '"':
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
	case '{':
		var obj struct {
			UserID json.Number `json:"user_id"`
			ID     json.Number `json:"id"`
		}
		if json.Unmarshal(v, &obj) == nil {
			if obj.UserID != "" {
				return obj.UserID.String()
			}
			if obj.ID != "" {
				return obj.ID.String()
			}
		}
	default:
		if _, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return string(v)
		}
	}
	return ""
}

// lookupNear finds `"key":` nearest to keyOff and returns its raw value
// token: the last valid occurrence before keyOff wins, else the first
// one after it, else nil. Suited to fields that precede the body field
// in the wire layout.
func lookupNear(win []byte, keyOff int, key string) []byte {
	needle := keyNeedle(key)
	if keyOff > len(win) {
		keyOff = len(win)
	}
	if v := searchBack(win, keyOff, needle); v != nil {
		return v
	}
	return searchForward(win, keyOff, needle)
}

// lookupAfter is lookupNear with the directions swapped: the first
// valid occurrence after keyOff wins, the backward direction is the
// fallback.
func lookupAfter(win []byte, keyOff int, key string) []byte {
	needle := keyNeedle(key)
	if keyOff > len(win) {
		keyOff = len(win)
	}
	if v := searchForward(win, keyOff, needle); v != nil {
		return v
	}
	return searchBack(win, keyOff, needle)
}

func keyNeedle(key string) []byte {
	needle := make([]byte, 0, len(key)+2)
	needle = append(needle, '"')
	needle = append(needle, key...)
	needle = append(needle, '"')
	return needle
}

func searchBack(win []byte, keyOff int, needle []byte) []byte {
	head := win[:keyOff]
	for end := len(head); end > 0; {
		i := bytes.LastIndex(head[:end], needle)
		if i < 0 {
			break
		}
		if v := valueAfterKey(win, i+len(needle)); v != nil {
			return v
		}
		end = i
	}
	return nil
}

func searchForward(win []byte, keyOff int, needle []byte) []byte {
	for from := keyOff; from < len(win); {
		i := bytes.Index(win[from:], needle)
		if i < 0 {
			break
		}
		at := from + i
		if v := valueAfterKey(win, at+len(needle)); v != nil {
			return v
		}
		from = at + 1
	}
	return nil
}

// valueAfterKey validates the colon after a key occurrence and returns
// the complete raw value token, or nil if the occurrence is not a key
// or its value does not close inside win.
func valueAfterKey(win []byte, p int) []byte {
	for p < len(win) && isSpace(win[p]) {
		p++
	}
	if p >= len(win) || win[p] != ':' {
		return nil
	}
	p++
	for p < len(win) && isSpace(win[p]) {
		p++
	}
	if p >= len(win) {
		return nil
	}
	return valueToken(win[p:])
}

// valueToken returns the complete leading JSON value in b, or nil when
// it does not close inside b.
func valueToken(b []byte) []byte {
	switch b[0] {
	case '"':
		escaped := false
		for i := 1; i < len(b); i++ {
			if escaped {
				escaped = false
				continue
			}
			switch b[i] {
			case '\\':
				escaped = true
			case '"':
				return b[:i+1]
			}
		}
		return nil
	case '[', '{':
		open, closeb := b[0], byte(']')
		if open == '{' {
			closeb = '}'
		}
		depth := 0
		inStr := false
		escaped := false
		for i := 0; i < len(b); i++ {
			c := b[i]
			if inStr {
				if escaped {
					escaped = false
				} else if c == '\\' {
					escaped = true
				} else if c == '"' {
					inStr = false
				}
				continue
			}
			switch c {
			case '"':
				inStr = true
			case open:
				depth++
			case closeb:
				depth--
				if depth == 0 {
					return b[:i+1]
				}
			}
		}
		return nil
	default:
		i := 0
		for i < len(b) && isScalarByte(b[i]) {
			i++
		}
		if i == 0 || i == len(b) {
			// Either nothing scalar, or the token may continue past
			// the window edge.
			return nil
		}
		return b[:i]
	}
}

func isScalarByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c == '-' || c == '+' || c == '.' || c == 'E':
		return true
	}
	return false
}
