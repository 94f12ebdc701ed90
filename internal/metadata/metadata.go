// Package metadata implements §4.1's IdAlloc & Metadata component: a
// process-singleton, durably-backed sequence counter with a lock-free
// atomic increment and a periodic flush timer. Grounded on
// original_source/include/greylock/database.hpp's metadata class
// (get_sequence, dirty flag, sync_metadata) for the semantics, and on
// service/pkg/ingest/apply/worker.go's ticker-driven select loop for the
// Go goroutine idiom that drives the flush timer.
package metadata

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/logger"
	"github.com/Ozhiganov/greylock/internal/model"
)

// DefaultFlushInterval is the periodic flush interval named in §4.1.
const DefaultFlushInterval = 60 * time.Second

// Metadata is the process-singleton sequence allocator. Safe for
// concurrent use by any number of Indexer callers.
type Metadata struct {
	engine *kvengine.Engine
	seq    int64
	dirty  int32

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Open performs the open-time recovery of §4.1: read the metadata key; if
// missing, start at zero; if present, restore seq.
func Open(engine *kvengine.Engine) (*Metadata, error) {
	m := &Metadata{engine: engine}
	rec, found, err := engine.GetMetadata()
	if err != nil {
		return nil, err
	}
	if found {
		m.seq = rec.Seq
	}
	return m, nil
}

// NextSeq atomically allocates and returns the next sequence value,
// marking Metadata dirty. The first call after a fresh Open returns 0
// (§4.1's open-time recovery: "if missing, start at zero"); m.seq itself
// tracks the next value still to be allocated, so it is what gets
// persisted and restored across restarts. Monotonic across the life of
// the database; never reused (§4.1).
func (m *Metadata) NextSeq() int64 {
	next := atomic.AddInt64(&m.seq, 1) - 1
	atomic.StoreInt32(&m.dirty, 1)
	return next
}

// FlushIfDirty serializes {seq} under the metadata key via a single put.
// Idempotent when not dirty.
func (m *Metadata) FlushIfDirty() error {
	if !atomic.CompareAndSwapInt32(&m.dirty, 1, 0) {
		return nil
	}
	seq := atomic.LoadInt64(&m.seq)
	if err := m.engine.PutMetadata(model.Metadata{Seq: seq}); err != nil {
		// Re-mark dirty so the next tick retries; the flush window in
		// §4.1's failure semantics only bounds forgetting, it does not
		// promise a single attempt succeeds.
		atomic.StoreInt32(&m.dirty, 1)
		return gerrors.Wrap(gerrors.IoError, "metadata_flush", err)
	}
	return nil
}

// StartTimer launches the single background timer thread that drives
// Metadata flush during steady state (§5's "single background timer
// thread ... the only writer of the metadata key"). Call Stop to halt it
// and run a final flush at shutdown.
func (m *Metadata) StartTimer(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.FlushIfDirty(); err != nil {
					logger.Error("metadata_flush_failed", "error", err)
				}
			case <-m.stopCh:
				if err := m.FlushIfDirty(); err != nil {
					logger.Error("metadata_final_flush_failed", "error", err)
				}
				return
			}
		}
	}()
}

// Stop halts the timer and waits for its final flush to complete (§5's
// shutdown sequence: "Timer stops; a final Metadata flush runs").
func (m *Metadata) Stop() {
	m.stopOnce.Do(func() {
		if m.stopCh == nil {
			return
		}
		close(m.stopCh)
		<-m.doneCh
	})
}
