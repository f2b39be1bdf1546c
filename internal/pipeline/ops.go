package pipeline

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// ErrRecordNotFound reports an operation against a removed record.
var ErrRecordNotFound = errors.New("record not found")

// ErrNotEnoughFiles rejects a merge of fewer than two records.
var ErrNotEnoughFiles = errors.New("at least 2 unlocked files are required")

// ErrLockedRecord rejects a merge input that is still password
// protected; the caller must unlock (or exclude) it first.
var ErrLockedRecord = errors.New("record is locked")

// Unlock attempts to remove password protection from a record. On
// success the unlocked bytes are re-encrypted under the session key and
// the record's ciphertext, nonce and lock flag are swapped atomically.
// On a wrong password the record is left untouched and
// pdf.ErrPasswordMismatch is returned for the caller to surface inline.
func Unlock(st *store.Store, sess *crypto.Session, unlocker pdf.Unlocker, id, password string) error {
	rec, ok := st.Get(id)
	if !ok {
		return ErrRecordNotFound
	}

	plaintext, err := sess.Open(rec.Ciphertext, rec.Nonce)
	if err != nil {
		return err
	}

	unlocked, err := unlocker.Unlock(plaintext, password)
	if err != nil {
		return err
	}

	ciphertext, nonce, err := sess.Seal(unlocked)
	if err != nil {
		return err
	}

	st.UpdateLockState(id, false, ciphertext, nonce)
	logrus.WithFields(logrus.Fields{
		"component": "pipeline",
		"file_id":   id,
	}).Info("Record unlocked and re-encrypted")
	return nil
}

// Merge decrypts the given records in caller order and copies every
// page of each into one output document. Records that decrypt to zero
// bytes are skipped with a warning; locked records are rejected up
// front because the merge does not unlock. Status callbacks report
// progress per source document.
func Merge(st *store.Store, sess *crypto.Session, merger pdf.Merger, ids []string, onStatus func(store.Status, int)) ([]byte, error) {
	if onStatus == nil {
		onStatus = func(store.Status, int) {}
	}
	if len(ids) < 2 {
		return nil, ErrNotEnoughFiles
	}

	log := logrus.WithField("component", "pipeline")

	records := make([]*store.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := st.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		if rec.Locked {
			return nil, fmt.Errorf("%w: %s", ErrLockedRecord, rec.Name)
		}
		records = append(records, rec)
	}

	onStatus(store.StatusReading, 5)

	sources := make([][]byte, 0, len(records))
	for i, rec := range records {
		plaintext, err := sess.Open(rec.Ciphertext, rec.Nonce)
		if err != nil {
			return nil, err
		}
		if len(plaintext) == 0 {
			log.WithField("file", rec.Name).Warn("Skipping empty file in merge")
			continue
		}
		sources = append(sources, plaintext)
		onStatus(store.StatusConverting, percentDone(i+1, len(records)))
	}

	out, err := merger.Merge(sources)
	if err != nil {
		return nil, err
	}

	onStatus(store.StatusCompleted, 100)
	return out, nil
}
