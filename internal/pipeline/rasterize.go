package pipeline

import (
	"context"
	"fmt"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/raster"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// rasterizeScale is the fixed render scale for PDF page conversion.
const rasterizeScale = 2.0

// defaultRasterQuality applies when the caller does not pick one.
const defaultRasterQuality = 0.85

// Rasterize renders every page of a PDF record to a raster image in the
// target format, emitting one output unit per page in page order.
type Rasterize struct {
	Renderer pdf.Renderer
	Format   Format
	// Quality is the 0-1 encoder quality.
	Quality float64
}

// Name identifies the strategy in logs and metrics.
func (s *Rasterize) Name() string { return "rasterize" }

// Run decrypts the record, renders each page at scale 2.0 and reports
// pages plus the accumulated output size.
func (s *Rasterize) Run(ctx context.Context, rec *store.Record, sess *crypto.Session, cb Callbacks) error {
	cb.status(store.StatusReading, 10)

	plaintext, err := decrypt(rec, sess)
	if err != nil {
		return err
	}
	cb.status(store.StatusReading, 50)

	doc, err := s.Renderer.Open(plaintext)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = doc.Close() }()

	total := doc.PageCount()
	cb.status(store.StatusConverting, 0)

	quality := s.Quality
	if quality <= 0 {
		quality = defaultRasterQuality
	}

	var producedBytes int64
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctxErr(ctx); err != nil {
			return err
		}

		img, err := doc.Render(pageNum, rasterizeScale)
		if err != nil {
			return fmt.Errorf("failed to render page %d: %w", pageNum, err)
		}

		encoded, err := raster.Encode(img, s.Format.MIME, quality)
		if err != nil {
			return err
		}
		producedBytes += int64(len(encoded))

		cb.page(total, &store.Page{PageNum: pageNum, Data: encoded, MIME: s.Format.MIME}, -1)
		cb.status(store.StatusConverting, percentDone(pageNum, total))
	}

	cb.page(total, nil, producedBytes)
	cb.status(store.StatusCompleted, 100)
	return nil
}

// ConvertImage re-encodes a single raster image record into the target
// format at the given quality. The one output unit is page 1.
type ConvertImage struct {
	Format  Format
	Quality float64
}

// Name identifies the strategy in logs and metrics.
func (s *ConvertImage) Name() string { return "convert-image" }

// Run decrypts, decodes and re-encodes the image.
func (s *ConvertImage) Run(ctx context.Context, rec *store.Record, sess *crypto.Session, cb Callbacks) error {
	cb.status(store.StatusReading, 10)

	plaintext, err := decrypt(rec, sess)
	if err != nil {
		return err
	}
	cb.status(store.StatusReading, 50)

	img, err := raster.Decode(plaintext)
	if err != nil {
		return err
	}
	cb.status(store.StatusConverting, 20)

	if err := ctxErr(ctx); err != nil {
		return err
	}

	quality := s.Quality
	if quality <= 0 {
		quality = 0.9
	}
	encoded, err := raster.Encode(img, s.Format.MIME, quality)
	if err != nil {
		return err
	}
	cb.status(store.StatusConverting, 80)

	cb.page(1, &store.Page{PageNum: 1, Data: encoded, MIME: s.Format.MIME}, -1)
	cb.page(1, nil, int64(len(encoded)))
	cb.status(store.StatusCompleted, 100)
	return nil
}
