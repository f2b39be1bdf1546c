package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/crypto/types"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// Shared test doubles for the pdf collaborator interfaces, plus helpers
// to build sealed records and record callback traffic.

func newTestSession(t *testing.T) *crypto.Session {
	t.Helper()
	sess, err := crypto.NewSession(types.AlgorithmAES256GCM)
	require.NoError(t, err)
	return sess
}

// sealedRecord builds a pending record holding the given plaintext.
func sealedRecord(t *testing.T, sess *crypto.Session, id, name string, plaintext []byte) *store.Record {
	t.Helper()
	ciphertext, nonce, err := sess.Seal(plaintext)
	require.NoError(t, err)
	return &store.Record{
		ID:             id,
		Name:           name,
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		OriginalSize:   int64(len(plaintext)),
		CompressedSize: -1,
		Status:         store.StatusPending,
	}
}

// jpegFixture returns a small valid JPEG for image strategy tests.
func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// fakeDocument renders solid pages sized pageW x pageH points.
type fakeDocument struct {
	pages    int
	pageW    float64
	pageH    float64
	failPage int
	rendered []int
	scales   []float64
	closed   bool
}

func (d *fakeDocument) PageCount() int { return d.pages }

func (d *fakeDocument) Render(pageNum int, scale float64) (image.Image, error) {
	if pageNum == d.failPage {
		return nil, fmt.Errorf("render failure on page %d", pageNum)
	}
	d.rendered = append(d.rendered, pageNum)
	d.scales = append(d.scales, scale)
	w := int(d.pageW * scale)
	h := int(d.pageH * scale)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

// fakeRenderer hands out a fresh fakeDocument per Open and keeps the
// last one for inspection.
type fakeRenderer struct {
	pages    int
	pageW    float64
	pageH    float64
	failPage int
	openErr  error

	opens   int
	lastDoc *fakeDocument
}

func (r *fakeRenderer) Open(data []byte) (pdf.Document, error) {
	r.opens++
	if r.openErr != nil {
		return nil, r.openErr
	}
	w, h := r.pageW, r.pageH
	if w == 0 {
		w = 100
	}
	if h == 0 {
		h = 140
	}
	pages := r.pages
	if pages == 0 {
		pages = 1
	}
	r.lastDoc = &fakeDocument{pages: pages, pageW: w, pageH: h, failPage: r.failPage}
	return r.lastDoc, nil
}

// fakeAssembler records its input and returns a marker document.
type fakeAssembler struct {
	pages []pdf.PageImage
	enc   *pdf.Encryption
	out   []byte
	err   error
}

func (a *fakeAssembler) Assemble(pages []pdf.PageImage, enc *pdf.Encryption) ([]byte, error) {
	a.pages = pages
	a.enc = enc
	if a.err != nil {
		return nil, a.err
	}
	if a.out != nil {
		return a.out, nil
	}
	return []byte("%PDF-assembled"), nil
}

// fakeMerger concatenates sources with a separator so order is visible.
type fakeMerger struct {
	sources [][]byte
	err     error
}

func (m *fakeMerger) Merge(sources [][]byte) ([]byte, error) {
	m.sources = sources
	if m.err != nil {
		return nil, m.err
	}
	return bytes.Join(sources, []byte("|")), nil
}

// fakeUnlocker succeeds only for the configured password.
type fakeUnlocker struct {
	password string
	calls    int
}

func (u *fakeUnlocker) Unlock(data []byte, password string) ([]byte, error) {
	u.calls++
	if password != u.password {
		return nil, pdf.ErrPasswordMismatch
	}
	return append([]byte("unlocked:"), data...), nil
}

// recorder captures the callback stream a strategy produced.
type recorder struct {
	statuses []statusEvent
	pages    []pageEvent
}

type statusEvent struct {
	status   store.Status
	progress int
}

type pageEvent struct {
	total          int
	page           *store.Page
	compressedSize int64
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		Status: func(s store.Status, p int) {
			r.statuses = append(r.statuses, statusEvent{s, p})
		},
		Page: func(total int, page *store.Page, compressedSize int64) {
			r.pages = append(r.pages, pageEvent{total, page, compressedSize})
		},
	}
}

func (r *recorder) pageNums() []int {
	var nums []int
	for _, e := range r.pages {
		if e.page != nil {
			nums = append(nums, e.page.PageNum)
		}
	}
	return nums
}

func (r *recorder) lastStatus() statusEvent {
	if len(r.statuses) == 0 {
		return statusEvent{}
	}
	return r.statuses[len(r.statuses)-1]
}

// failingStrategy always errors after an initial status report.
type failingStrategy struct {
	err error
}

func (s *failingStrategy) Name() string { return "failing" }

func (s *failingStrategy) Run(_ context.Context, _ *store.Record, _ *crypto.Session, cb Callbacks) error {
	cb.status(store.StatusReading, 10)
	if s.err != nil {
		return s.err
	}
	return errors.New("deliberate failure")
}
