package split_engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/nvoskov/chatsplit/internal/models"
)

func msg(text string) models.Message {
	return models.Message{Text: text}
}

func TestWordModeSplitsInsideRecord(t *testing.T) {
	var chunks []Chunk
	a := NewAssembler(4, 0, true, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	for _, s := range []string{"hello world", "foo", "bar baz qux"} {
		if err := a.Accept(msg(s)); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	if err := a.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if got := strings.Join(chunks[0].Tokens, " "); got != "hello world foo bar" {
		t.Fatalf("chunk 1: %q", got)
	}
	if got := strings.Join(chunks[1].Tokens, " "); got != "baz qux" {
		t.Fatalf("chunk 2: %q", got)
	}
	if chunks[0].Index != 1 || chunks[1].Index != 2 {
		t.Fatalf("indices %d %d", chunks[0].Index, chunks[1].Index)
	}
}

func TestWordModeOverlapCarriesWords(t *testing.T) {
	var chunks []Chunk
	a := NewAssembler(4, 2, true, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	for _, s := range []string{"hello world", "foo", "bar baz qux"} {
		if err := a.Accept(msg(s)); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	if err := a.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if got := strings.Join(chunks[1].Tokens, " "); got != "foo bar baz qux" {
		t.Fatalf("chunk 2: %q", got)
	}
	if chunks[1].Carried != 2 {
		t.Fatalf("carried %d", chunks[1].Carried)
	}
	// A tail holding only carried words is never emitted.
}

func TestRecordModeKeepsRecordsWhole(t *testing.T) {
	var chunks []Chunk
	a := NewAssembler(5, 0, false, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	for _, s := range []string{"one two three", "four five six", "seven"} {
		if err := a.Accept(msg(s)); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	if err := a.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	// The second record crosses the threshold and stays whole.
	if len(chunks[0].Records) != 2 || chunks[0].WordCount != 6 {
		t.Fatalf("chunk 1: %d records, %d words", len(chunks[0].Records), chunks[0].WordCount)
	}
	if len(chunks[1].Records) != 1 || chunks[1].Records[0].Text != "seven" {
		t.Fatalf("chunk 2: %+v", chunks[1].Records)
	}
}

func TestRecordModeOverlapSeedsNextChunk(t *testing.T) {
	var chunks []Chunk
	a := NewAssembler(5, 1, false, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	for _, s := range []string{"a b c", "d e f", "g h"} {
		if err := a.Accept(msg(s)); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	if err := a.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	c2 := chunks[1]
	if c2.Carried != 1 || len(c2.Records) != 2 || c2.Records[0].Text != "d e f" {
		t.Fatalf("chunk 2: carried=%d records=%+v", c2.Carried, c2.Records)
	}
}

func TestFinishDropsPureCarryTail(t *testing.T) {
	var chunks []Chunk
	a := NewAssembler(2, 1, false, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err := a.Accept(msg("x y")); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := a.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, the carry-only tail must be dropped", len(chunks))
	}
}

func TestFinishSealsShortTail(t *testing.T) {
	var chunks []Chunk
	a := NewAssembler(10, 0, false, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err := a.Accept(msg("just three words")); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := a.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(chunks) != 1 || chunks[0].WordCount != 3 {
		t.Fatalf("chunks %+v", chunks)
	}
}

func TestSinkErrorStopsAssembly(t *testing.T) {
	boom := errors.New("boom")
	a := NewAssembler(1, 0, false, func(Chunk) error { return boom })
	if err := a.Accept(msg("word")); !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
