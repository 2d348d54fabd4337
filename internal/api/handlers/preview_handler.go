package handlers

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/nvoskov/chatsplit/internal/config"
	"github.com/nvoskov/chatsplit/internal/core/cache"
	split "github.com/nvoskov/chatsplit/internal/core/split_engine"
	"github.com/nvoskov/chatsplit/internal/models"
)

const (
	previewDefaultLimit = 5
	previewMaxLimit     = 100
	previewCacheTTL     = 10 * time.Minute
	// Bytes hashed for the cache key. Enough to distinguish real
	// exports without reading a multi-gigabyte upload twice.
	previewHashBytes = 4 << 20
)

type PreviewHandler struct {
	cache *cache.Cache // nil when no Redis is configured
	cfg   *config.Config
}

func NewPreviewHandler(c *cache.Cache, cfg *config.Config) *PreviewHandler {
	return &PreviewHandler{cache: c, cfg: cfg}
}

// Preview returns the first few decoded messages of an upload so the
// caller can sanity-check format detection before a full run.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxUploadMB)<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	limit := formInt(r, "limit", previewDefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > previewMaxLimit {
		limit = previewMaxLimit
	}

	key := ""
	if h.cache != nil {
		sum, herr := hashPrefix(file, header.Size)
		if herr != nil {
			http.Error(w, "could not read file", http.StatusBadRequest)
			return
		}
		key = fmt.Sprintf("preview:%x:%d", sum, limit)
		if body, ok := h.cache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
			return
		}
	}

	pipe := split.NewPipeline(&split.SplitConfig{
		MaxRetainBytes:     h.cfg.MaxRetainKB << 10,
		ContextWindowBytes: h.cfg.ContextWindowBytes,
	})
	msgs, err := pipe.Preview(r.Context(), split.NewReaderSource(file, h.cfg.ScanBufferKB<<10), limit)
	if err != nil {
		log.Printf("preview: %v", err)
		http.Error(w, "preview failed", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	body, err := json.Marshal(map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
	if err != nil {
		http.Error(w, "preview failed", http.StatusInternalServerError)
		return
	}

	if h.cache != nil && key != "" {
		h.cache.Set(r.Context(), key, string(body), previewCacheTTL)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// hashPrefix digests the leading bytes of the upload together with its
// declared size, then rewinds the file for the real read.
func hashPrefix(file io.ReadSeeker, size int64) ([]byte, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%d:", size)
	if _, err := io.CopyN(h, file, previewHashBytes); err != nil && err != io.EOF {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
