package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// CpuProber classifies PDF bytes with a pdfcpu validation pass.
type CpuProber struct{}

// NewProber creates a pdfcpu backed prober.
func NewProber() *CpuProber {
	return &CpuProber{}
}

// Probe attempts a structural open. Password-protected input maps to
// ErrPasswordRequired, anything else broken surfaces as-is.
func (p *CpuProber) Probe(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return classifyOpenError(err)
	}
	return nil
}

// CpuAssembler builds PDFs from page rasters via pdfcpu image import.
type CpuAssembler struct{}

// NewAssembler creates a pdfcpu backed assembler.
func NewAssembler() *CpuAssembler {
	return &CpuAssembler{}
}

// Assemble imports one image per page, each page sized to its image,
// then applies AES password encryption when enc is set. Both user and
// owner passwords are set; print, modify, copy and annotate remain
// permitted, matching the lock tool's contract.
func (a *CpuAssembler) Assemble(pages []PageImage, enc *Encryption) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to assemble")
	}

	imp, err := api.Import("pos:full", types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build import params: %w", err)
	}

	imgs := make([]io.Reader, 0, len(pages))
	for _, p := range pages {
		imgs = append(imgs, bytes.NewReader(p.Data))
	}

	var assembled bytes.Buffer
	if err := api.ImportImages(nil, &assembled, imgs, imp, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}

	if enc == nil {
		return assembled.Bytes(), nil
	}

	conf := model.NewAESConfiguration(enc.UserPassword, enc.OwnerPassword, 256)
	conf.Permissions = model.PermissionsAll

	var encrypted bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(assembled.Bytes()), &encrypted, conf); err != nil {
		return nil, fmt.Errorf("failed to encrypt document: %w", err)
	}
	return encrypted.Bytes(), nil
}

// CpuMerger copies pages across documents via pdfcpu.
type CpuMerger struct{}

// NewMerger creates a pdfcpu backed merger.
func NewMerger() *CpuMerger {
	return &CpuMerger{}
}

// Merge concatenates the sources' pages in the given order.
func (m *CpuMerger) Merge(sources [][]byte) ([]byte, error) {
	readers := make([]io.ReadSeeker, 0, len(sources))
	for _, src := range sources {
		readers = append(readers, bytes.NewReader(src))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}
	return out.Bytes(), nil
}

// CpuUnlocker strips password protection via pdfcpu.
type CpuUnlocker struct{}

// NewUnlocker creates a pdfcpu backed unlocker.
func NewUnlocker() *CpuUnlocker {
	return &CpuUnlocker{}
}

// Unlock decrypts the document with the supplied password. A wrong
// password yields ErrPasswordMismatch.
func (u *CpuUnlocker) Unlock(data []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		if isWrongPassword(err) {
			return nil, ErrPasswordMismatch
		}
		return nil, fmt.Errorf("failed to unlock document: %w", err)
	}
	return out.Bytes(), nil
}
