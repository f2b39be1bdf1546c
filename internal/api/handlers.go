package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pdfgarden/pdfgarden/internal/export"
	"github.com/pdfgarden/pdfgarden/internal/ingest"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/pipeline"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// recordView is the wire shape of one record: the store record plus
// derived savings fields the frontend displays.
type recordView struct {
	*store.Record
	SavedBytes   int64   `json:"savedBytes"`
	SavedPercent float64 `json:"savedPercent"`
}

func viewOf(rec *store.Record) recordView {
	return recordView{
		Record:       rec,
		SavedBytes:   rec.SavedBytes(),
		SavedPercent: rec.SavedPercent(),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleUpload accepts a multipart batch, ingests every part named
// "files" and reports added records plus per-file rejections.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	raws := make([]ingest.RawFile, 0, len(parts))
	for _, part := range parts {
		data, err := readPart(part)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", part.Filename))
			return
		}
		raws = append(raws, ingest.RawFile{
			Name: part.Filename,
			MIME: part.Header.Get("Content-Type"),
			Data: data,
		})
	}

	ids, rejections := s.ingestor.Ingest(raws)

	rejected := make([]map[string]string, 0, len(rejections))
	for _, rej := range rejections {
		rejected = append(rejected, map[string]string{
			"name":   rej.Name,
			"reason": rej.Reason.Error(),
		})
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"ids":      ids,
		"rejected": rejected,
	})
}

func readPart(part *multipart.FileHeader) ([]byte, error) {
	f, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.store.Snapshot()

	views := make([]recordView, 0, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		views = append(views, viewOf(rec))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"records":         views,
		"deletedCount":    snapshot.DeletedCount,
		"newlyAddedCount": snapshot.NewlyAddedCount,
		"allSettled":      s.store.AllSettled(),
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(rec))
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.store.RemoveRecord(id)
	s.preview.Invalidate(id)
	s.metrics.RecordsRemoved.Inc()
	s.metrics.RecordsLive.Set(float64(s.store.Len()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.store.Reset()
	s.metrics.RecordsLive.Set(0)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.store.Snapshot()

	var originalBytes, compressedBytes, savedBytes int64
	completed := 0
	for _, rec := range snapshot.Records {
		if rec.Status == store.StatusCompleted && rec.CompressedSize >= 0 {
			completed++
			originalBytes += rec.OriginalSize
			compressedBytes += rec.CompressedSize
			savedBytes += rec.SavedBytes()
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"files":           s.store.Len(),
		"completed":       completed,
		"deletedCount":    snapshot.DeletedCount,
		"newlyAddedCount": snapshot.NewlyAddedCount,
		"originalBytes":   originalBytes,
		"compressedBytes": compressedBytes,
		"savedBytes":      savedBytes,
		"algorithm":       s.session.Algorithm(),
	})
}

// jobRequest selects a tool and its parameters for a processing run.
type jobRequest struct {
	Tool     pipeline.Tool           `json:"tool"`
	Preset   pipeline.CompressPreset `json:"preset,omitempty"`
	Mode     pipeline.CompressMode   `json:"mode,omitempty"`
	Score    int                     `json:"score,omitempty"`
	Percent  int                     `json:"percent,omitempty"`
	Password string                  `json:"password,omitempty"`
	Quality  float64                 `json:"quality,omitempty"`
}

// handleStartJob builds the strategy for the requested tool and runs it
// over all pending records in the background.
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job request")
		return
	}

	strat, err := s.buildStrategy(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.startJob(strat)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"tool": string(req.Tool)})
}

// buildStrategy dispatches a job request to its strategy. Validation
// failures surface here so a bad request never dequeues a record.
func (s *Server) buildStrategy(req jobRequest) (pipeline.Strategy, error) {
	switch req.Tool {
	case pipeline.ToolCompressImage:
		params := pipeline.CompressImageParams{Mode: req.Mode, Score: req.Score, Percent: req.Percent}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		return &pipeline.CompressImage{Params: params}, nil

	case pipeline.ToolCompressPDF:
		return &pipeline.CompressPDF{
			Renderer:  s.collab.Renderer,
			Assembler: s.collab.Assembler,
			Preset:    req.Preset,
		}, nil

	case pipeline.ToolLockPDF:
		if err := pipeline.ValidatePassword(req.Password); err != nil {
			return nil, err
		}
		return &pipeline.LockPDF{
			Renderer:  s.collab.Renderer,
			Assembler: s.collab.Assembler,
			Password:  req.Password,
		}, nil

	case pipeline.ToolMergePDF:
		return nil, fmt.Errorf("merge runs through its own endpoint")

	default:
		if req.Tool == "" {
			return nil, fmt.Errorf("tool is required")
		}
		format := pipeline.FormatFor(req.Tool)
		if req.Tool.ImageTool() {
			return &pipeline.ConvertImage{Format: format, Quality: req.Quality}, nil
		}
		return &pipeline.Rasterize{Renderer: s.collab.Renderer, Format: format, Quality: req.Quality}, nil
	}
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid unlock request")
		return
	}

	err := pipeline.Unlock(s.store, s.session, s.collab.Unlocker, id, req.Password)
	switch {
	case err == nil:
		s.preview.Invalidate(id)
		s.writeJSON(w, http.StatusOK, map[string]bool{"unlocked": true})
	case errors.Is(err, pipeline.ErrRecordNotFound):
		s.writeError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, pdf.ErrPasswordMismatch):
		// Wrong password is an expected answer, not a server fault.
		s.writeJSON(w, http.StatusOK, map[string]any{
			"unlocked": false,
			"reason":   "wrong password",
		})
	default:
		s.log.WithError(err).Error("Unlock failed")
		s.writeError(w, http.StatusInternalServerError, "unlock failed")
	}
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid merge request")
		return
	}

	out, err := pipeline.Merge(s.store, s.session, s.collab.Merger, req.IDs, nil)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrNotEnoughFiles), errors.Is(err, pipeline.ErrLockedRecord):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, pipeline.ErrRecordNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	default:
		s.log.WithError(err).Error("Merge failed")
		s.writeError(w, http.StatusInternalServerError, "merge failed")
		return
	}

	serveAttachment(w, export.MergedDocumentName, "application/pdf", out)
}

func (s *Server) handleGeneratePassword(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.GeneratorOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid password request")
		return
	}
	if opts.Length == 0 {
		opts.Length = 16
	}

	password, err := pipeline.GeneratePassword(opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"password": password,
		"strength": pipeline.PasswordStrength(password),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	quality := 0.7
	if q := r.URL.Query().Get("quality"); q != "" {
		parsed, err := strconv.ParseFloat(q, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			s.writeError(w, http.StatusBadRequest, "quality must be in (0, 1]")
			return
		}
		quality = parsed
	}

	p, err := s.preview.Generate(r.Context(), id, quality)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrRecordNotFound):
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	default:
		s.log.WithError(err).Error("Preview failed")
		s.writeError(w, http.StatusInternalServerError, "preview failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"original":       p.OriginalJPEG,
		"compressed":     p.CompressedJPEG,
		"originalSize":   p.OriginalSize,
		"compressedSize": p.CompressedSize,
	})
}

func (s *Server) handleDownloadPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, ok := s.store.Get(vars["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	pageNum, err := strconv.Atoi(vars["page"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}

	for _, page := range rec.Pages {
		if page.PageNum == pageNum {
			serveAttachment(w, export.FileName(rec, page, r.URL.Query().Get("name")), page.MIME, page.Data)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "page not found")
}

// handleDownloadFile serves a record's output: a bare file for a single
// output unit, a zip for a multi-page conversion.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if rec.Status != store.StatusCompleted || len(rec.Pages) == 0 {
		s.writeError(w, http.StatusConflict, "file has no completed output")
		return
	}

	customName := r.URL.Query().Get("name")
	if len(rec.Pages) == 1 {
		page := rec.Pages[0]
		serveAttachment(w, export.FileName(rec, page, customName), page.MIME, page.Data)
		return
	}

	archive, err := export.Archive(rec, customName)
	if err != nil {
		s.log.WithError(err).Error("Archive failed")
		s.writeError(w, http.StatusInternalServerError, "archive failed")
		return
	}
	serveAttachment(w, export.BaseName(rec, customName)+".zip", "application/zip", archive)
}

func (s *Server) handleDownloadAll(w http.ResponseWriter, _ *http.Request) {
	archive, err := export.ArchiveAll(s.store.Snapshot())
	if err != nil {
		s.writeError(w, http.StatusNotFound, "no completed outputs to download")
		return
	}
	serveAttachment(w, export.SessionArchiveName, "application/zip", archive)
}

func serveAttachment(w http.ResponseWriter, name, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
