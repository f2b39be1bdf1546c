package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// baseDPI is the PDF point resolution; scale 1.0 renders at 72 dpi,
// matching viewport-scale semantics.
const baseDPI = 72

// FitzRenderer rasterizes PDF pages through mupdf.
type FitzRenderer struct{}

// NewRenderer creates a mupdf backed renderer.
func NewRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open loads decrypted document bytes for rendering.
func (r *FitzRenderer) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Render(pageNum int, scale float64) (image.Image, error) {
	if pageNum < 1 || pageNum > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range", pageNum)
	}
	// fitz pages are zero-based.
	img, err := d.doc.ImageDPI(pageNum-1, baseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
