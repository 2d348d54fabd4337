package split_engine

import (
	"strings"

	"github.com/nvoskov/chatsplit/internal/models"
)

// Chunk is a sealed, ordered group of records (or, in word mode, a
// flat ordered word sequence) emitted as one output part.
//
// Index:     1-based, strictly increasing with no gaps.
// WordCount: accumulated words at seal time, carried overlap included.
// Carried:   leading records (or words) seeded from the previous chunk.
type Chunk struct {
	Index     int
	Records   []models.Message
	Tokens    []string
	WordCount int
	Carried   int
}

// ChunkSink receives each sealed chunk in index order. A sealed chunk
// is immutable; the sink must not be handed a chunk twice.
type ChunkSink func(Chunk) error

// Assembler accumulates records and seals a chunk the instant its word
// count first reaches the threshold. Owned-state object: Accept once
// per record in discovery order, Finish exactly once at exhaustion.
//
// Record mode appends whole records. Word mode (plain word-stream
// output) appends individual words, so one record's words may straddle
// a seal and every sealed chunk holds exactly limit words.
type Assembler struct {
	limit    int
	overlap  int
	wordMode bool
	sink     ChunkSink

	index   int
	records []models.Message
	tokens  []string
	words   int
	carried int
	fresh   int
}

// NewAssembler creates an assembler. limit is clamped to at least 1;
// overlap to at least 0.
func NewAssembler(limit, overlap int, wordMode bool, sink ChunkSink) *Assembler {
	if limit < 1 {
		limit = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Assembler{limit: limit, overlap: overlap, wordMode: wordMode, sink: sink}
}

// Accept folds one record into the current chunk, sealing as the
// threshold is crossed.
func (a *Assembler) Accept(m models.Message) error {
	if a.wordMode {
		for _, w := range strings.Fields(m.Text) {
			a.tokens = append(a.tokens, w)
			a.words++
			a.fresh++
			if a.words >= a.limit {
				if err := a.seal(); err != nil {
					return err
				}
			}
		}
		return nil
	}
	a.records = append(a.records, m)
	a.words += m.WordCount()
	a.fresh++
	if a.words >= a.limit {
		return a.seal()
	}
	return nil
}

// Finish seals the tail chunk if it holds anything beyond carried
// overlap; a pure carry-over tail would only duplicate the previous
// part and is discarded.
func (a *Assembler) Finish() error {
	if a.fresh == 0 {
		return nil
	}
	return a.seal()
}

func (a *Assembler) seal() error {
	a.index++
	ch := Chunk{Index: a.index, WordCount: a.words, Carried: a.carried}
	if a.wordMode {
		ch.Tokens = a.tokens
	} else {
		ch.Records = a.records
	}
	if err := a.sink(ch); err != nil {
		return err
	}

	// Seed the next chunk with the configured trailing overlap. The
	// seed is a copy: the sealed chunk stays immutable.
	if a.wordMode {
		carry := a.overlap
		if carry > len(a.tokens) {
			carry = len(a.tokens)
		}
		seed := make([]string, carry)
		copy(seed, a.tokens[len(a.tokens)-carry:])
		a.tokens = seed
		a.words = carry
		a.carried = carry
	} else {
		carry := a.overlap
		if carry > len(a.records) {
			carry = len(a.records)
		}
		seed := make([]models.Message, carry)
		copy(seed, a.records[len(a.records)-carry:])
		a.records = seed
		a.words = 0
		for i := range seed {
			a.words += seed[i].WordCount()
		}
		a.carried = carry
	}
	a.fresh = 0
	return nil
}
