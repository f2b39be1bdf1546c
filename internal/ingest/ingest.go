// Package ingest turns raw uploaded files into encrypted store records.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/metrics"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// minPDFSize is the smallest byte count worth attempting a PDF parse
// on; anything shorter is structurally invalid by policy.
const minPDFSize = 10

// ErrTooSmall rejects a claimed PDF below the minimal plausible size.
var ErrTooSmall = errors.New("file too small to be a PDF")

// RawFile is one uploaded blob as handed over by the upload surface.
type RawFile struct {
	Name string
	MIME string
	Data []byte
}

// Rejection reports one file that failed validation. The batch
// continues past it.
type Rejection struct {
	Name   string
	Reason error
}

// Ingestor validates, lock-probes and encrypts incoming files before
// inserting them into the store. Plaintext never reaches a record.
type Ingestor struct {
	session *crypto.Session
	st      *store.Store
	prober  pdf.Prober
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// New creates an ingestor. metrics may be nil.
func New(session *crypto.Session, st *store.Store, prober pdf.Prober, m *metrics.Metrics) *Ingestor {
	return &Ingestor{
		session: session,
		st:      st,
		prober:  prober,
		metrics: m,
		log:     logrus.WithField("component", "ingest"),
	}
}

// Ingest processes one upload batch. Zero-byte files are silently
// dropped (count logged), claimed PDFs are probed for password
// protection, and every surviving file is encrypted before its record
// is constructed. Returns the ids of the added records plus per-file
// rejections; a rejection never aborts the batch.
func (i *Ingestor) Ingest(raws []RawFile) ([]string, []Rejection) {
	valid := raws[:0:0]
	for _, f := range raws {
		if len(f.Data) == 0 {
			continue
		}
		valid = append(valid, f)
	}
	if dropped := len(raws) - len(valid); dropped > 0 {
		i.log.WithField("count", dropped).Warn("Empty file(s) skipped")
		if i.metrics != nil {
			i.metrics.FilesRejected.WithLabelValues("empty").Add(float64(dropped))
		}
	}

	var (
		records    []*store.Record
		ids        []string
		rejections []Rejection
	)

	for _, f := range valid {
		locked := false
		if isPDF(f) {
			var err error
			locked, err = i.probeLock(f)
			if err != nil {
				i.log.WithFields(logrus.Fields{
					"file": f.Name,
				}).WithError(err).Error("Structurally invalid PDF rejected")
				rejections = append(rejections, Rejection{Name: f.Name, Reason: err})
				if i.metrics != nil {
					i.metrics.FilesRejected.WithLabelValues("structural").Inc()
				}
				continue
			}
		}

		ciphertext, nonce, err := i.session.Seal(f.Data)
		if err != nil {
			rejections = append(rejections, Rejection{Name: f.Name, Reason: fmt.Errorf("failed to encrypt: %w", err)})
			if i.metrics != nil {
				i.metrics.FilesRejected.WithLabelValues("encrypt").Inc()
			}
			continue
		}

		rec := &store.Record{
			ID:             uuid.NewString(),
			Name:           f.Name,
			Ciphertext:     ciphertext,
			Nonce:          nonce,
			OriginalSize:   int64(len(f.Data)),
			CompressedSize: -1,
			Status:         store.StatusPending,
			Locked:         locked,
		}
		records = append(records, rec)
		ids = append(ids, rec.ID)

		if i.metrics != nil {
			i.metrics.FilesIngested.Inc()
			i.metrics.BytesIngested.Add(float64(len(f.Data)))
		}
	}

	i.st.AddRecords(records)
	if i.metrics != nil {
		i.metrics.RecordsLive.Set(float64(i.st.Len()))
	}
	return ids, rejections
}

// probeLock classifies a claimed PDF. Password protection is not a
// rejection: the original bytes are stored encrypted as-is and
// unlocking happens later, on demand.
func (i *Ingestor) probeLock(f RawFile) (bool, error) {
	if len(f.Data) < minPDFSize {
		return false, ErrTooSmall
	}
	switch err := i.prober.Probe(f.Data); {
	case err == nil:
		return false, nil
	case errors.Is(err, pdf.ErrPasswordRequired):
		return true, nil
	default:
		return false, err
	}
}

func isPDF(f RawFile) bool {
	return f.MIME == "application/pdf" || strings.HasSuffix(strings.ToLower(f.Name), ".pdf")
}
