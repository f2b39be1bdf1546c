package pipeline

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/metrics"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/raster"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// Preview rendering policy: first page at scale 1.5, JPEG. The original
// side is rendered near-lossless so only the compressed side varies.
const (
	previewScale           = 1.5
	previewOriginalQuality = 0.95
	defaultPreviewCapacity = 64
	defaultPreviewInterval = 300 * time.Millisecond
)

// Preview is a side-by-side pair for one record: the first page as
// stored and the same page re-encoded at a candidate quality.
type Preview struct {
	OriginalJPEG   []byte
	CompressedJPEG []byte
	OriginalSize   int64
	CompressedSize int64
}

// PreviewGenerator renders compression previews. The original render is
// cached per record id since it never changes for a given session;
// compressed re-renders are throttled so a user dragging a quality
// slider does not queue a render per tick.
type PreviewGenerator struct {
	sess     *crypto.Session
	st       *store.Store
	renderer pdf.Renderer
	metrics  *metrics.Metrics

	cache   *lru.TwoQueueCache[string, []byte]
	limiter *rate.Limiter
}

// NewPreviewGenerator creates a generator with the given cache capacity
// and minimum interval between compressed renders. Zero values pick the
// defaults; metrics may be nil.
func NewPreviewGenerator(sess *crypto.Session, st *store.Store, renderer pdf.Renderer, m *metrics.Metrics, capacity int, interval time.Duration) (*PreviewGenerator, error) {
	if capacity <= 0 {
		capacity = defaultPreviewCapacity
	}
	if interval <= 0 {
		interval = defaultPreviewInterval
	}

	cache, err := lru.New2Q[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}

	return &PreviewGenerator{
		sess:     sess,
		st:       st,
		renderer: renderer,
		metrics:  m,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// Generate renders the preview pair for a record at the given 0-1
// quality. It blocks until the throttle admits the render or the
// context is cancelled.
func (g *PreviewGenerator) Generate(ctx context.Context, id string, quality float64) (*Preview, error) {
	rec, ok := g.st.Get(id)
	if !ok {
		return nil, ErrRecordNotFound
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("preview throttled: %w", err)
	}

	plaintext, err := decrypt(rec, g.sess)
	if err != nil {
		return nil, err
	}

	original, err := g.originalJPEG(id, plaintext)
	if err != nil {
		return nil, err
	}

	compressed, err := g.renderFirstPage(plaintext, quality)
	if err != nil {
		return nil, err
	}

	return &Preview{
		OriginalJPEG:   original,
		CompressedJPEG: compressed,
		OriginalSize:   rec.OriginalSize,
		CompressedSize: int64(len(compressed)),
	}, nil
}

// Invalidate drops the cached original render, for example after an
// unlock replaced the record's content.
func (g *PreviewGenerator) Invalidate(id string) {
	g.cache.Remove(id)
}

func (g *PreviewGenerator) originalJPEG(id string, plaintext []byte) ([]byte, error) {
	if cached, ok := g.cache.Get(id); ok {
		if g.metrics != nil {
			g.metrics.PreviewCacheHits.Inc()
		}
		return cached, nil
	}
	if g.metrics != nil {
		g.metrics.PreviewCacheMisses.Inc()
	}

	rendered, err := g.renderFirstPage(plaintext, previewOriginalQuality)
	if err != nil {
		return nil, err
	}
	g.cache.Add(id, rendered)
	return rendered, nil
}

func (g *PreviewGenerator) renderFirstPage(plaintext []byte, quality float64) ([]byte, error) {
	doc, err := g.renderer.Open(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = doc.Close() }()

	if doc.PageCount() < 1 {
		return nil, fmt.Errorf("document has no pages")
	}

	img, err := doc.Render(1, previewScale)
	if err != nil {
		return nil, fmt.Errorf("failed to render preview page: %w", err)
	}
	return raster.Encode(img, raster.MIMEJPEG, quality)
}
