// Package pdf defines the document collaborator contracts the pipeline
// depends on, together with their pdfcpu and mupdf backed
// implementations. Strategies never talk to a PDF library directly.
package pdf

import "image"

// Document is an open, renderable document.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Render rasterizes page pageNum (1-based) at the given scale,
	// where scale 1.0 corresponds to the document's natural 72 dpi size.
	Render(pageNum int, scale float64) (image.Image, error)

	Close() error
}

// Renderer opens decrypted document bytes for rasterization.
type Renderer interface {
	Open(data []byte) (Document, error)
}

// Prober attempts a cheap structural open to classify a file. It
// returns nil for a well-formed document, ErrPasswordRequired for a
// password-protected one, and any other error for structural
// corruption.
type Prober interface {
	Probe(data []byte) error
}

// PageImage is one rasterized page ready for document assembly.
// Width and height are in points.
type PageImage struct {
	Data   []byte
	Width  float64
	Height float64
}

// Encryption configures password protection for an assembled document.
// User and owner passwords may be equal; permissions cover printing,
// modification, copying and annotating.
type Encryption struct {
	UserPassword  string
	OwnerPassword string
}

// Assembler builds a new PDF from a sequence of page images, preserving
// each page's dimensions, optionally applying password encryption.
type Assembler interface {
	Assemble(pages []PageImage, enc *Encryption) ([]byte, error)
}

// Merger copies every page of each source document, in order, into one
// output document.
type Merger interface {
	Merge(sources [][]byte) ([]byte, error)
}

// Unlocker removes password protection from document bytes. A wrong
// password yields ErrPasswordMismatch and no output.
type Unlocker interface {
	Unlock(data []byte, password string) ([]byte, error)
}
