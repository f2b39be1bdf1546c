// Package pipeline contains the processing strategies and the
// orchestrator that drives records through them. Every strategy follows
// the same shape: decrypt the record (Reading), transform the plaintext
// (Converting), report output and a terminal status through callbacks.
// Plaintext exists only inside a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// ErrEmptyFile indicates a record decrypted to zero bytes.
var ErrEmptyFile = errors.New("file is empty")

// Callbacks receive a strategy's observable side effects. Both
// functions may be nil. The orchestrator binds them to store mutations,
// which degrade to no-ops once the record is removed.
type Callbacks struct {
	// Status reports a state transition; progress < 0 leaves the
	// previous value in place.
	Status func(status store.Status, progress int)

	// Page delivers one output unit. page may be nil when only
	// totalPages or compressedSize changed; compressedSize < 0 means
	// "not provided".
	Page func(totalPages int, page *store.Page, compressedSize int64)
}

func (cb Callbacks) status(s store.Status, progress int) {
	if cb.Status != nil {
		cb.Status(s, progress)
	}
}

func (cb Callbacks) page(total int, p *store.Page, compressedSize int64) {
	if cb.Page != nil {
		cb.Page(total, p, compressedSize)
	}
}

// Strategy is one processing pipeline. Run returns an error only for
// the orchestrator's bookkeeping; the terminal Error status has already
// been reported through the callbacks by then.
type Strategy interface {
	Name() string
	Run(ctx context.Context, rec *store.Record, sess *crypto.Session, cb Callbacks) error
}

// decrypt opens a record's ciphertext and applies the empty-content
// guard shared by all strategies.
func decrypt(rec *store.Record, sess *crypto.Session) ([]byte, error) {
	plaintext, err := sess.Open(rec.Ciphertext, rec.Nonce)
	if err != nil {
		return nil, err
	}
	if len(plaintext) == 0 {
		return nil, ErrEmptyFile
	}
	return plaintext, nil
}

// percentDone is the Converting progress contract: units processed over
// total, rounded to the nearest integer.
func percentDone(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(done)/float64(total)*100 + 0.5)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	default:
		return nil
	}
}
