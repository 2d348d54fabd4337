package split_engine

// Bounds for the run options exposed at the configuration boundary.
// Engine internals accept any positive values; clamping happens where
// user input enters.
const (
	MinWordLimit     = 1_000
	MaxWordLimit     = 5_000_000
	DefaultWordLimit = 100_000

	MaxOverlap     = 20
	DefaultOverlap = 5
)

// SplitConfig tunes one run of the streaming split pipeline.
//
// WordLimit: words per chunk before it seals.
// Overlap:   trailing records (words in word mode) carried into the
//            next chunk for context continuity.
// WordMode:  flat word-stream assembly; a record's words may straddle
//            chunks. Used for plain-text output with no metrics.
// ScanBufferBytes, MaxRetainBytes, ContextWindowBytes: byte-source read
// size and scanner retention/window tunables (0 = defaults).
type SplitConfig struct {
	WordLimit int
	Overlap   int
	WordMode  bool

	ScanBufferBytes    int
	MaxRetainBytes     int
	ContextWindowBytes int
}

// ClampWordLimit bounds a requested per-chunk word threshold to the
// sane range, substituting the default for a missing value.
func ClampWordLimit(n int) int {
	if n == 0 {
		return DefaultWordLimit
	}
	if n < MinWordLimit {
		return MinWordLimit
	}
	if n > MaxWordLimit {
		return MaxWordLimit
	}
	return n
}

// ClampOverlap bounds a requested overlap record count.
func ClampOverlap(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxOverlap {
		return MaxOverlap
	}
	return n
}
