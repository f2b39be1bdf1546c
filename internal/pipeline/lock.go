package pipeline

import (
	"context"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/raster"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// Lock rendering policy: pages are rasterized at scale 1.5 and encoded
// as JPEG at quality 0.8 before the protected document is assembled.
const (
	lockScale   = 1.5
	lockQuality = 0.8
)

// LockPDF re-encodes a document as a password-protected PDF. The same
// value serves as user and owner password; printing, modification,
// copying and annotating stay permitted. Password validity (1-256
// chars, no emoji) is checked by the caller before dispatch.
type LockPDF struct {
	Renderer  pdf.Renderer
	Assembler pdf.Assembler
	Password  string
}

// Name identifies the strategy in logs and metrics.
func (s *LockPDF) Name() string { return "lock-pdf" }

// Run produces the locked document as the record's single output unit.
func (s *LockPDF) Run(ctx context.Context, rec *store.Record, sess *crypto.Session, cb Callbacks) error {
	if err := ValidatePassword(s.Password); err != nil {
		return err
	}

	enc := &pdf.Encryption{
		UserPassword:  s.Password,
		OwnerPassword: s.Password,
	}
	out, err := rasterizeToDocument(ctx, rec, sess, s.Renderer, s.Assembler, lockQuality, lockScale, enc, cb)
	if err != nil {
		return err
	}

	cb.page(1, &store.Page{PageNum: 1, Data: out, MIME: raster.MIMEPDF}, int64(len(out)))
	cb.status(store.StatusCompleted, 100)
	return nil
}
