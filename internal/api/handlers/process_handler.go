package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	middleware "github.com/nvoskov/chatsplit/internal/api/middlewares"
	"github.com/nvoskov/chatsplit/internal/config"
	"github.com/nvoskov/chatsplit/internal/core"
	"github.com/nvoskov/chatsplit/internal/core/archive"
	"github.com/nvoskov/chatsplit/internal/core/export"
	split "github.com/nvoskov/chatsplit/internal/core/split_engine"
	"github.com/nvoskov/chatsplit/internal/models"
)

type ProcessHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient // nil when archive storage is not configured
	cfg          *config.Config
}

func NewProcessHandler(dbclient core.DbClient, objectclient core.ObjectClient, cfg *config.Config) *ProcessHandler {
	return &ProcessHandler{dbclient: dbclient, objectclient: objectclient, cfg: cfg}
}

// ProcessExport accepts a chat-export JSON upload, streams it through
// the split engine, and responds with a ZIP of the rendered parts.
func (h *ProcessHandler) ProcessExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxUploadMB)<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".json") {
		http.Error(w, "a .json export file is required", http.StatusBadRequest)
		return
	}

	format := export.ParseFormat(r.FormValue("format"))
	wordLimit := split.ClampWordLimit(formInt(r, "word_count", 0))
	overlap := split.ClampOverlap(formInt(r, "overlap", split.DefaultOverlap))
	opts := export.Options{
		IncludeTimestamp: formBool(r, "include_timestamp", true),
		IncludeSender:    formBool(r, "include_sender", true),
		IncludeReactions: formBool(r, "include_reactions", true),
		IncludeReplyID:   formBool(r, "include_reply_id", true),
	}

	now := time.Now()
	run := &models.Run{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileName:  filepath.Base(header.Filename),
		Format:    string(format),
		WordLimit: wordLimit,
		Overlap:   overlap,
		Status:    models.RunStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.dbclient.CreateRun(r.Context(), run); err != nil {
		log.Printf("run %s: insert failed: %v", run.ID, err)
		http.Error(w, "failed to record run", http.StatusInternalServerError)
		return
	}

	pipe := split.NewPipeline(&split.SplitConfig{
		WordLimit:          wordLimit,
		Overlap:            overlap,
		WordMode:           format == export.FormatTXT && !opts.MetricsEnabled(),
		ScanBufferBytes:    h.cfg.ScanBufferKB << 10,
		MaxRetainBytes:     h.cfg.MaxRetainKB << 10,
		ContextWindowBytes: h.cfg.ContextWindowBytes,
	})

	pack := archive.NewPackager()
	sink := func(c split.Chunk) error {
		return addChunkParts(pack, c, format, opts)
	}

	src := split.NewReaderSource(file, h.cfg.ScanBufferKB<<10)
	lastDecile := -1
	stats, err := pipe.Run(r.Context(), src, header.Size, sink, func(pct float64) {
		if d := int(pct) / 10; d > lastDecile {
			lastDecile = d
			log.Printf("run %s: %3.0f%% of %d bytes", run.ID, pct, header.Size)
		}
	})
	if err != nil || stats.Partial {
		h.finishRun(run.ID, models.RunStatusFailed, stats.Messages, stats.Chunks, "")
		switch {
		case stats.Partial:
			// Client went away mid-run; nothing useful to write back.
		case errors.Is(err, split.ErrNoMessages):
			http.Error(w, "no messages found in the uploaded file", http.StatusUnprocessableEntity)
		default:
			log.Printf("run %s: %v", run.ID, err)
			http.Error(w, "processing failed", http.StatusInternalServerError)
		}
		return
	}

	blob, err := pack.Finalize()
	if err != nil {
		h.finishRun(run.ID, models.RunStatusFailed, stats.Messages, stats.Chunks, "")
		http.Error(w, "failed to build archive", http.StatusInternalServerError)
		return
	}

	archiveURL := ""
	if h.objectclient != nil && h.cfg.BucketName != "" {
		key := fmt.Sprintf("%s/%s/split_result.zip", userID, run.ID)
		uploadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		url, uerr := h.objectclient.UploadFile(uploadCtx, h.cfg.BucketName, key, bytes.NewReader(blob), "application/zip")
		cancel()
		if uerr != nil {
			log.Printf("run %s: archive upload failed: %v", run.ID, uerr)
		} else {
			archiveURL = url
		}
	}

	h.finishRun(run.ID, models.RunStatusComplete, stats.Messages, stats.Chunks, archiveURL)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="split_result.zip"`)
	_, _ = w.Write(blob)
}

// ListRuns returns the caller's run history.
func (h *ProcessHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	runs, err := h.dbclient.ListRunsByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}

// addChunkParts renders one sealed chunk into its archive parts. A
// metrics-enabled run always gets a plain-text part plus a structured
// part; the structured extension follows the selected format, with
// jsonl standing in when plain text was selected.
func addChunkParts(pack *archive.Packager, c split.Chunk, format export.Format, opts export.Options) error {
	if !opts.MetricsEnabled() {
		body, err := export.Render(format, c, opts)
		if err != nil {
			return err
		}
		return pack.AddPart(archive.PartName(c.Index, format.Ext()), body)
	}

	if err := pack.AddPart(archive.PartName(c.Index, "txt"), export.TXT(c)); err != nil {
		return err
	}
	structured := format
	if !structured.Structured() {
		structured = export.FormatJSONL
	}
	body, err := export.Render(structured, c, opts)
	if err != nil {
		return err
	}
	return pack.AddPart(archive.PartName(c.Index, structured.Ext()), body)
}

// finishRun records the outcome on a background context so a client
// disconnect cannot lose the bookkeeping.
func (h *ProcessHandler) finishRun(id, status string, messages, chunks int, archiveURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.dbclient.FinishRun(ctx, id, status, messages, chunks, archiveURL); err != nil {
		log.Printf("run %s: finish update failed: %v", id, err)
	}
}
