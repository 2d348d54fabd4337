package split_engine

import (
	"bytes"
)

// Shape describes the representational form of a matched field value.
type Shape int

const (
	// ShapeString is a plain quoted JSON string value.
	ShapeString Shape = iota
	// ShapeArray is a bracketed array of rich-text segments.
	ShapeArray
)

// Match is one complete field occurrence located in the stream.
//
// Raw:       the still-encoded value, delimiters included.
// Shape:     string or segment-array form of the value.
// Window:    bounded slice of the bytes surrounding the match, used for
//            the best-effort metrics lookup.
// KeyOffset: position of the matched key within Window.
//
// Raw and Window are copies fully owned by the receiver; the scanner
// keeps no reference to them after emission.
type Match struct {
	Raw       []byte
	Shape     Shape
	Window    []byte
	KeyOffset int
}

// ScanOptions tunes the scanner (minimal necessary).
type ScanOptions struct {
	// MaxRetainBytes caps the retained buffer. Bytes older than the cap
	// that produced no match are dropped for good, which abandons any
	// partial match they belonged to. 0 uses the default.
	MaxRetainBytes int
	// WindowBytes is how much context is kept on each side of a match
	// for the metrics lookup. 0 uses the default.
	WindowBytes int
}

const (
	defaultMaxRetain = 1 << 20
	defaultWindow    = 2048
)

type scanState int

const (
	stateSeek   scanState = iota // searching for the next field marker
	stateColon                   // marker seen, expecting the key/value colon
	stateValue                   // colon seen, classifying the value shape
	stateString                  // inside a quoted string value
	stateArray                   // inside a bracketed segment array
)

// keyPrefix identifies a candidate message-body key. A candidate is the
// body field when the prefix is closed by a quote, and a sibling
// entities key when followed by skipSuffix; the latter is consumed
// without emission so its nested segment keys cannot double-match.
var (
	keyPrefix  = []byte(`"text`)
	skipSuffix = []byte(`_entities"`)
)

// pendingMatch is a completed match waiting for its trailing context
// window to become available before emission.
type pendingMatch struct {
	keyStart int
	rawStart int
	rawEnd   int
	shape    Shape
}

// Scanner incrementally locates message-field occurrences inside an
// ordered sequence of byte buffers with arbitrary, non-aligned
// boundaries. It owns a retained buffer holding the unmatched suffix of
// everything seen so far, bounded by MaxRetainBytes. Feed appends one
// buffer and returns every match that became complete; Drain performs
// the final pass at end of input.
type Scanner struct {
	maxRetain int
	window    int

	buf []byte
	pos int

	state    scanState
	emit     bool
	keyStart int
	valStart int
	depth    int
	inStr    bool
	escaped  bool

	queue []pendingMatch
}

// NewScanner creates a Scanner. opts may be nil for defaults.
func NewScanner(opts *ScanOptions) *Scanner {
	mr := defaultMaxRetain
	w := defaultWindow
	if opts != nil {
		if opts.MaxRetainBytes > 0 {
			mr = opts.MaxRetainBytes
		}
		if opts.WindowBytes > 0 {
			w = opts.WindowBytes
		}
	}
	return &Scanner{maxRetain: mr, window: w}
}

// Feed appends the next byte range to the retained buffer and returns
// all matches whose closing delimiter (and trailing context window)
// became available. A value split across reads resolves here with no
// special casing: the buffer simply merges across Feeds.
func (s *Scanner) Feed(p []byte) []Match {
	s.buf = append(s.buf, p...)
	s.step()
	out := s.flush(false)
	s.trimFront()
	if over := len(s.buf) - s.maxRetain; over > 0 {
		// Ceiling hit: force out anything complete (with whatever
		// trailing window exists), then drop the oldest bytes. A
		// partial match losing its head is abandoned; that is the accepted
		// loss for single values larger than the cap.
		out = append(out, s.flush(true)...)
		s.dropFront(len(s.buf) - s.maxRetain)
	}
	return out
}

// Drain performs one final pass over the retained buffer and emits any
// last complete matches. A value that never closed is dropped silently.
// The scanner is left empty and reusable.
func (s *Scanner) Drain() []Match {
	s.step()
	s.state = stateSeek
	out := s.flush(true)
	s.buf = nil
	s.pos = 0
	s.queue = nil
	return out
}

// step advances the state machine as far as the buffered bytes allow.
func (s *Scanner) step() {
	for {
		switch s.state {
		case stateSeek:
			i := bytes.Index(s.buf[s.pos:], keyPrefix)
			if i < 0 {
				// Keep a marker-sized tail so a split marker still
				// matches once the next buffer arrives.
				if tail := len(s.buf) - (len(keyPrefix) - 1); tail > s.pos {
					s.pos = tail
				}
				return
			}
			start := s.pos + i
			rest := s.buf[start+len(keyPrefix):]
			if len(rest) == 0 {
				s.pos = start
				return
			}
			if rest[0] == '"' {
				s.keyStart = start
				s.emit = true
				s.pos = start + len(keyPrefix) + 1
				s.state = stateColon
				continue
			}
			n := len(rest)
			if n > len(skipSuffix) {
				n = len(skipSuffix)
			}
			if bytes.Equal(rest[:n], skipSuffix[:n]) {
				if n < len(skipSuffix) {
					// Undecided at buffer end; wait for more bytes.
					s.pos = start
					return
				}
				s.keyStart = start
				s.emit = false
				s.pos = start + len(keyPrefix) + len(skipSuffix)
				s.state = stateColon
				continue
			}
			s.pos = start + 1

		case stateColon:
			for s.pos < len(s.buf) && isSpace(s.buf[s.pos]) {
				s.pos++
			}
			if s.pos == len(s.buf) {
				return
			}
			if s.buf[s.pos] != ':' {
				// The candidate was a string value, not a key.
				s.state = stateSeek
				continue
			}
			s.pos++
			s.state = stateValue

		case stateValue:
			for s.pos < len(s.buf) && isSpace(s.buf[s.pos]) {
				s.pos++
			}
			if s.pos == len(s.buf) {
				return
			}
			switch s.buf[s.pos] {
			case '"':
				s.valStart = s.pos
				s.escaped = false
				s.pos++
				s.state = stateString
			case '[':
				s.valStart = s.pos
				s.depth = 1
				s.inStr = false
				s.escaped = false
				s.pos++
				s.state = stateArray
			default:
				// Not a recognized shape (number, null, object).
				s.state = stateSeek
			}

		case stateString:
			for s.pos < len(s.buf) {
				c := s.buf[s.pos]
				s.pos++
				if s.escaped {
					s.escaped = false
					continue
				}
				if c == '\\' {
					s.escaped = true
					continue
				}
				if c == '"' {
					s.complete(ShapeString)
					break
				}
			}
			if s.state == stateString {
				return
			}

		case stateArray:
			for s.pos < len(s.buf) {
				c := s.buf[s.pos]
				s.pos++
				if s.inStr {
					if s.escaped {
						s.escaped = false
					} else if c == '\\' {
						s.escaped = true
					} else if c == '"' {
						s.inStr = false
					}
					continue
				}
				switch c {
				case '"':
					s.inStr = true
				case '[':
					s.depth++
				case ']':
					s.depth--
					if s.depth == 0 {
						s.complete(ShapeArray)
					}
				}
				if s.state != stateArray {
					break
				}
			}
			if s.state == stateArray {
				return
			}
		}
	}
}

// complete records the just-closed value. Emission waits until the
// trailing context window is buffered (or input ends).
func (s *Scanner) complete(shape Shape) {
	if s.emit {
		s.queue = append(s.queue, pendingMatch{
			keyStart: s.keyStart,
			rawStart: s.valStart,
			rawEnd:   s.pos,
			shape:    shape,
		})
	}
	s.state = stateSeek
}

// flush emits queued matches in discovery order. Without force, a match
// is held back until window bytes past its end are buffered.
func (s *Scanner) flush(force bool) []Match {
	var out []Match
	for len(s.queue) > 0 {
		p := s.queue[0]
		if !force && p.rawEnd+s.window > len(s.buf) {
			break
		}
		lo := p.keyStart - s.window
		if lo < 0 {
			lo = 0
		}
		hi := p.rawEnd + s.window
		if hi > len(s.buf) {
			hi = len(s.buf)
		}
		raw := make([]byte, p.rawEnd-p.rawStart)
		copy(raw, s.buf[p.rawStart:p.rawEnd])
		win := make([]byte, hi-lo)
		copy(win, s.buf[lo:hi])
		out = append(out, Match{Raw: raw, Shape: p.shape, Window: win, KeyOffset: p.keyStart - lo})
		s.queue = s.queue[1:]
	}
	return out
}

// trimFront releases buffer content strictly older than anything a
// future match, the in-progress match, or a queued match could need.
func (s *Scanner) trimFront() {
	keep := s.pos - (len(keyPrefix) - 1)
	if s.state != stateSeek && s.keyStart < keep {
		keep = s.keyStart
	}
	if len(s.queue) > 0 && s.queue[0].keyStart < keep {
		keep = s.queue[0].keyStart
	}
	keep -= s.window
	if keep > 0 {
		s.dropFront(keep)
	}
}

// dropFront permanently discards the oldest n retained bytes and
// rebases every held position. A partial match whose head is gone is
// abandoned back to seeking.
func (s *Scanner) dropFront(n int) {
	s.buf = append(s.buf[:0], s.buf[n:]...)
	s.pos -= n
	if s.pos < 0 {
		s.pos = 0
	}
	for i := range s.queue {
		s.queue[i].keyStart -= n
		if s.queue[i].keyStart < 0 {
			s.queue[i].keyStart = 0
		}
		s.queue[i].rawStart -= n
		s.queue[i].rawEnd -= n
	}
	if s.state != stateSeek {
		s.keyStart -= n
		s.valStart -= n
		if s.keyStart < 0 || (s.valStart < 0 && (s.state == stateString || s.state == stateArray)) {
			s.state = stateSeek
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
