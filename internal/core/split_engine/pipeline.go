package split_engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/nvoskov/chatsplit/internal/models"
)

// ErrNoMessages is the terminal failure for an input that yields zero
// extractable records. It is the one per-content condition that aborts
// a whole run.
var ErrNoMessages = errors.New("no messages found in the export")

// ByteSource yields successive byte ranges of the input in delivery
// order. The returned slice is only valid until the next call; final
// marks the last range and Next is not called again after it.
type ByteSource interface {
	Next(ctx context.Context) (buf []byte, final bool, err error)
}

// ReaderSource adapts an io.Reader into a ByteSource with fixed-size
// reads.
type ReaderSource struct {
	r   io.Reader
	buf []byte
}

// NewReaderSource creates a ReaderSource. bufSize <= 0 uses 64 KiB.
func NewReaderSource(r io.Reader, bufSize int) *ReaderSource {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	return &ReaderSource{r: r, buf: make([]byte, bufSize)}
}

func (s *ReaderSource) Next(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	n, err := s.r.Read(s.buf)
	if err == io.EOF {
		return s.buf[:n], true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s.buf[:n], false, nil
}

// Progress receives a monotonically non-decreasing completion
// percentage derived from bytes consumed over declared input size.
type Progress func(pct float64)

// RunStats summarizes a finished run.
type RunStats struct {
	Messages  int
	Chunks    int
	BytesRead int64
	// Partial is set when the run was cancelled before the source was
	// exhausted; sealed chunks remain valid.
	Partial bool
}

// Pipeline drives one streaming run: byte source → field scanner →
// decode/extract → record build → chunk assembly. Data flows strictly
// forward; every hand-off is an owned, immutable value.
type Pipeline struct {
	cfg SplitConfig
}

// NewPipeline creates a pipeline for one run configuration.
func NewPipeline(cfg *SplitConfig) *Pipeline {
	c := SplitConfig{WordLimit: DefaultWordLimit}
	if cfg != nil {
		c = *cfg
	}
	if c.WordLimit < 1 {
		c.WordLimit = DefaultWordLimit
	}
	return &Pipeline{cfg: c}
}

const recordQueueDepth = 64

// Run consumes the source to exhaustion and hands every sealed chunk to
// sink in index order. totalBytes (0 if unknown) only feeds progress
// reporting. Cancellation is cooperative: it is checked before each
// source read, and the assembler still finishes the in-flight chunk so
// nothing sealed-worthy is silently lost; the stats then report partial
// completion.
func (p *Pipeline) Run(ctx context.Context, src ByteSource, totalBytes int64, sink ChunkSink, progress Progress) (RunStats, error) {
	var stats RunStats
	partial := false

	asm := NewAssembler(p.cfg.WordLimit, p.cfg.Overlap, p.cfg.WordMode, func(c Chunk) error {
		stats.Chunks++
		return sink(c)
	})
	sc := NewScanner(&ScanOptions{
		MaxRetainBytes: p.cfg.MaxRetainBytes,
		WindowBytes:    p.cfg.ContextWindowBytes,
	})

	records := make(chan models.Message, recordQueueDepth)
	g, gctx := errgroup.WithContext(context.Background())

	// Stage one: pull buffers, scan, decode, build records.
	g.Go(func() error {
		defer close(records)

		emit := func(ms []Match) error {
			for _, m := range ms {
				rec, ok := BuildRecord(m)
				if !ok {
					continue
				}
				select {
				case records <- rec:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		}

		for {
			if ctx.Err() != nil {
				partial = true
				return nil
			}
			buf, final, err := src.Next(ctx)
			if err != nil {
				partial = true
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read input: %w", err)
			}
			stats.BytesRead += int64(len(buf))
			if err := emit(sc.Feed(buf)); err != nil {
				return err
			}
			if progress != nil && totalBytes > 0 {
				pct := float64(stats.BytesRead) / float64(totalBytes) * 100
				if pct > 100 {
					pct = 100
				}
				progress(pct)
			}
			if final {
				break
			}
		}
		if err := emit(sc.Drain()); err != nil {
			return err
		}
		if progress != nil {
			progress(100)
		}
		return nil
	})

	// Stage two: assemble chunks. Runs the assembler to completion even
	// when stage one stopped early on cancellation.
	g.Go(func() error {
		for rec := range records {
			stats.Messages++
			if err := asm.Accept(rec); err != nil {
				return err
			}
		}
		if err := asm.Finish(); err != nil {
			return err
		}
		if stats.Messages == 0 && !partial {
			return ErrNoMessages
		}
		return nil
	})

	err := g.Wait()
	stats.Partial = partial
	return stats, err
}

// Preview returns the first limit decoded records by running the same
// scanner/decoder/extractor stack bounded to limit, without chunking.
func (p *Pipeline) Preview(ctx context.Context, src ByteSource, limit int) ([]models.Message, error) {
	if limit < 1 {
		limit = 1
	}
	sc := NewScanner(&ScanOptions{
		MaxRetainBytes: p.cfg.MaxRetainBytes,
		WindowBytes:    p.cfg.ContextWindowBytes,
	})
	out := make([]models.Message, 0, limit)

	collect := func(ms []Match) bool {
		for _, m := range ms {
			rec, ok := BuildRecord(m)
			if !ok {
				continue
			}
			out = append(out, rec)
			if len(out) == limit {
				return true
			}
		}
		return false
	}

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		buf, final, err := src.Next(ctx)
		if err != nil {
			return out, fmt.Errorf("read input: %w", err)
		}
		if collect(sc.Feed(buf)) {
			return out, nil
		}
		if final {
			break
		}
	}
	collect(sc.Drain())
	return out, nil
}
