// Package export turns completed records into downloadable artifacts:
// single files, per-record archives and the whole-session archive.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdfgarden/pdfgarden/internal/store"
)

// Default artifact names.
const (
	DefaultPrefix      = "Converted_"
	SessionArchiveName = "PDFGarden_Harvest.zip"
	MergedDocumentName = "merged_garden_document.pdf"
)

var log = logrus.WithField("component", "export")

// BaseName derives the artifact stem for a record: the custom name when
// one was chosen, otherwise the original name with its extension
// stripped and the converted prefix applied.
func BaseName(rec *store.Record, customName string) string {
	if name := strings.TrimSpace(customName); name != "" {
		return sanitize(name)
	}
	stem := strings.TrimSuffix(rec.Name, path.Ext(rec.Name))
	if stem == "" {
		stem = rec.ID
	}
	return sanitize(DefaultPrefix + stem)
}

// FileName names one output unit. A single-page record downloads as a
// bare file; pages of a multi-page record are numbered.
func FileName(rec *store.Record, page store.Page, customName string) string {
	base := BaseName(rec, customName)
	ext := extFor(page.MIME)
	if rec.TotalPages <= 1 {
		return base + ext
	}
	return fmt.Sprintf("%s_p%d%s", base, page.PageNum, ext)
}

// Archive packs every page of one record into a zip. Single-page
// records don't need one, but the caller may still ask.
func Archive(rec *store.Record, customName string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, page := range rec.Pages {
		if err := addEntry(zw, FileName(rec, page, customName), page.Data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveAll packs the outputs of every completed record into one zip.
// Records that are not Completed are skipped; an empty result is an
// error so the handler can 404 instead of serving a hollow archive.
func ArchiveAll(snapshot store.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := 0
	seen := make(map[string]int)
	for _, rec := range snapshot.Records {
		if rec.Status != store.StatusCompleted {
			continue
		}
		for _, page := range rec.Pages {
			name := dedupe(seen, FileName(rec, page, ""))
			if err := addEntry(zw, name, page.Data); err != nil {
				return nil, err
			}
			entries++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if entries == 0 {
		return nil, fmt.Errorf("no completed outputs to archive")
	}

	log.WithField("entries", entries).Debug("Session archive built")
	return buf.Bytes(), nil
}

func addEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	return nil
}

// dedupe suffixes repeated archive entry names so two files with the
// same original name don't collide inside one zip.
func dedupe(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	case "application/pdf":
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// sanitize strips path separators and control characters from a
// user-chosen name.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7F:
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "download"
	}
	return out
}
