package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/metrics"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// Orchestrator drives pending records through a strategy, one record in
// flight per workflow. The in-flight marker prevents two dispatch
// attempts from both seeing a record as Pending, and all store updates
// go through ids, so a removal mid-flight degrades the remaining
// callbacks to no-ops.
type Orchestrator struct {
	st      *store.Store
	sess    *crypto.Session
	metrics *metrics.Metrics
	log     *logrus.Entry

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewOrchestrator creates an orchestrator. metrics may be nil.
func NewOrchestrator(st *store.Store, sess *crypto.Session, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		st:       st,
		sess:     sess,
		metrics:  m,
		log:      logrus.WithField("component", "orchestrator"),
		inFlight: make(map[string]bool),
	}
}

// RunAll processes every pending record sequentially with the given
// strategy. A record that fails lands in Error and the loop continues
// with the next one; the call returns when no pending records remain or
// the context is cancelled.
func (o *Orchestrator) RunAll(ctx context.Context, strat Strategy) {
	for {
		if ctx.Err() != nil {
			return
		}

		rec, ok := o.st.NextPending()
		if !ok {
			return
		}
		if !o.acquire(rec.ID) {
			// Another workflow got there first; let it finish.
			return
		}

		o.runOne(ctx, strat, rec)
		o.release(rec.ID)
	}
}

// RunOne processes a single record if it is dispatchable. Returns false
// when the record is absent, not Pending, or already in flight.
func (o *Orchestrator) RunOne(ctx context.Context, strat Strategy, id string) bool {
	rec, ok := o.st.Get(id)
	if !ok || rec.Status != store.StatusPending {
		return false
	}
	if !o.acquire(id) {
		return false
	}
	defer o.release(id)

	o.runOne(ctx, strat, rec)
	return true
}

func (o *Orchestrator) runOne(ctx context.Context, strat Strategy, rec *store.Record) {
	start := time.Now()
	log := o.log.WithFields(logrus.Fields{
		"strategy": strat.Name(),
		"file_id":  rec.ID,
	})

	cb := Callbacks{
		Status: func(status store.Status, progress int) {
			o.st.UpdateStatus(rec.ID, status, progress)
		},
		Page: func(total int, page *store.Page, compressedSize int64) {
			o.st.AppendPage(rec.ID, total, page, compressedSize)
			if o.metrics != nil && page != nil {
				o.metrics.PagesProduced.Inc()
				o.metrics.BytesProduced.Add(float64(len(page.Data)))
			}
		},
	}

	err := runGuarded(ctx, strat, rec, o.sess, cb)
	status := string(store.StatusCompleted)
	if err != nil {
		// Terminal Error keeps the last good progress value.
		o.st.SetError(rec.ID, err.Error())
		status = string(store.StatusError)
		log.WithError(err).Error("Strategy run failed")
	} else {
		log.WithField("duration", time.Since(start)).Debug("Strategy run completed")
	}

	if o.metrics != nil {
		o.metrics.ObserveStrategyRun(strat.Name(), status, time.Since(start))
	}
}

// runGuarded confines a panicking strategy to a per-record error so the
// loop can continue with the remaining files.
func runGuarded(ctx context.Context, strat Strategy, rec *store.Record, sess *crypto.Session, cb Callbacks) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return strat.Run(ctx, rec, sess, cb)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("strategy panicked: %v", e.value)
}

func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[id] {
		return false
	}
	o.inFlight[id] = true
	return true
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
}

// InFlight reports whether a record is currently Reading or Converting
// in some workflow.
func (o *Orchestrator) InFlight(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[id]
}
