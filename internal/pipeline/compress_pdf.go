package pipeline

import (
	"context"
	"fmt"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/raster"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// CompressPreset is one of the fixed PDF compression levels.
type CompressPreset string

// Presets: extreme trades quality for size, less keeps quality high.
const (
	PresetExtreme     CompressPreset = "extreme"
	PresetRecommended CompressPreset = "recommended"
	PresetLess        CompressPreset = "less"
)

// PresetSettings are the quality/scale pair behind a preset.
type PresetSettings struct {
	Quality float64
	Scale   float64
	Label   string
}

// Settings resolves a preset; unknown values fall back to recommended.
func (p CompressPreset) Settings() PresetSettings {
	switch p {
	case PresetExtreme:
		return PresetSettings{Quality: 0.4, Scale: 1.0, Label: "Extreme (Smallest Size)"}
	case PresetLess:
		return PresetSettings{Quality: 0.9, Scale: 2.0, Label: "Less (High Quality)"}
	default:
		return PresetSettings{Quality: 0.7, Scale: 1.5, Label: "Recommended"}
	}
}

// CompressPDF rasterizes every page at the preset scale, re-encodes
// each as JPEG at the preset quality and reassembles a new PDF
// preserving page dimensions. The single output unit is the document.
type CompressPDF struct {
	Renderer  pdf.Renderer
	Assembler pdf.Assembler
	Preset    CompressPreset
}

// Name identifies the strategy in logs and metrics.
func (s *CompressPDF) Name() string { return "compress-pdf" }

// Run produces the compressed document.
func (s *CompressPDF) Run(ctx context.Context, rec *store.Record, sess *crypto.Session, cb Callbacks) error {
	settings := s.Preset.Settings()
	out, err := rasterizeToDocument(ctx, rec, sess, s.Renderer, s.Assembler, settings.Quality, settings.Scale, nil, cb)
	if err != nil {
		return err
	}

	cb.page(1, &store.Page{PageNum: 1, Data: out, MIME: raster.MIMEPDF}, int64(len(out)))
	cb.status(store.StatusCompleted, 100)
	return nil
}

// rasterizeToDocument is the shared body of the compress and lock
// strategies: render every page, JPEG-encode it, assemble a fresh PDF
// sized page-by-page, optionally with password encryption.
func rasterizeToDocument(
	ctx context.Context,
	rec *store.Record,
	sess *crypto.Session,
	renderer pdf.Renderer,
	assembler pdf.Assembler,
	quality, scale float64,
	enc *pdf.Encryption,
	cb Callbacks,
) ([]byte, error) {
	cb.status(store.StatusReading, 10)

	plaintext, err := decrypt(rec, sess)
	if err != nil {
		return nil, err
	}
	cb.status(store.StatusReading, 30)

	doc, err := renderer.Open(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = doc.Close() }()

	total := doc.PageCount()
	cb.status(store.StatusConverting, 0)

	pages := make([]pdf.PageImage, 0, total)
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}

		img, err := doc.Render(pageNum, scale)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
		}

		encoded, err := raster.Encode(img, raster.MIMEJPEG, quality)
		if err != nil {
			return nil, err
		}

		bounds := img.Bounds()
		pages = append(pages, pdf.PageImage{
			Data: encoded,
			// Rendered pixels back to points at the same scale.
			Width:  float64(bounds.Dx()) / scale,
			Height: float64(bounds.Dy()) / scale,
		})

		cb.status(store.StatusConverting, percentDone(pageNum, total))
	}

	out, err := assembler.Assemble(pages, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}
	return out, nil
}
