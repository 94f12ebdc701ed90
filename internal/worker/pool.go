// Package worker implements §14's index request pool: a buffered channel
// feeding N goroutines that batch incoming index requests and flush them
// either once a batch fills or on a timeout, whichever comes first.
// Grounded on the teacher's service/pkg/ingest/apply/worker.go
// (ApplyWorker.run's select-on-input/timer/stop loop), retargeted from
// applying queued database mutations to running internal/indexer.Index.
package worker

import (
	"sync"
	"time"

	"github.com/Ozhiganov/greylock/internal/indexer"
	"github.com/Ozhiganov/greylock/internal/logger"
	"github.com/Ozhiganov/greylock/internal/telemetry"
)

// Request is one caller's ask to index a batch of documents into a
// single mailbox. Response is delivered on Result once the request's
// batch (or a later batch it was folded into) is flushed.
type Request struct {
	Mailbox string
	Docs    []indexer.DocumentInput
	Result  chan Response
}

// Response reports the outcome of one Request.
type Response struct {
	Result indexer.Result
	Err    error
}

// Options configures the pool. Grounded on SPEC_FULL §10.1's Worker
// config block.
type Options struct {
	Count         int
	QueueCapacity int
	BatchSize     int
	FlushInterval time.Duration
}

// Pool owns the shared input channel and the indexer it drives.
type Pool struct {
	ix    *indexer.Indexer
	opts  Options
	input chan Request
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New builds a Pool bound to ix. Call Start to launch its worker
// goroutines.
func New(ix *indexer.Indexer, opts Options) *Pool {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 50 * time.Millisecond
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 4096
	}
	return &Pool{
		ix:    ix,
		opts:  opts,
		input: make(chan Request, opts.QueueCapacity),
		stop:  make(chan struct{}),
	}
}

// Start launches opts.Count worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.opts.Count; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run()
		}()
	}
}

// Stop signals every worker to flush its remaining buffer and exit, and
// waits for them to finish. Safe to call once.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Submit enqueues a request. It blocks if the shared queue is full,
// naturally applying backpressure to callers (search is unaffected — it
// bypasses this pool entirely, per §14).
func (p *Pool) Submit(req Request) {
	p.input <- req
	telemetry.WorkerQueueDepth.Set(float64(len(p.input)))
}

func (p *Pool) run() {
	buffer := make([]Request, 0, p.opts.BatchSize)
	timer := time.NewTimer(p.opts.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case req := <-p.input:
			buffer = append(buffer, req)
			telemetry.WorkerQueueDepth.Set(float64(len(p.input)))
			if len(buffer) >= p.opts.BatchSize {
				p.flush(buffer)
				buffer = buffer[:0]
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(p.opts.FlushInterval)
			}
		case <-timer.C:
			if len(buffer) > 0 {
				p.flush(buffer)
				buffer = buffer[:0]
			}
			timer.Reset(p.opts.FlushInterval)
		case <-p.stop:
			if len(buffer) > 0 {
				p.flush(buffer)
			}
			return
		}
	}
}

// flush groups requests by mailbox so each mailbox's documents share one
// Indexer.Index call (and therefore one set of docs/indexes batches),
// then routes each request's own slice of the mailbox's Result back to
// it.
func (p *Pool) flush(reqs []Request) {
	byMailbox := make(map[string][]int)
	for i, r := range reqs {
		byMailbox[r.Mailbox] = append(byMailbox[r.Mailbox], i)
	}
	for mailbox, idxs := range byMailbox {
		var docs []indexer.DocumentInput
		counts := make([]int, len(idxs))
		for k, i := range idxs {
			docs = append(docs, reqs[i].Docs...)
			counts[k] = len(reqs[i].Docs)
		}
		result, err := p.ix.Index(mailbox, docs)
		if err != nil {
			logger.Error("index_batch_failed", "mailbox", mailbox, "error", err)
			for _, i := range idxs {
				deliver(reqs[i], Response{Err: err})
			}
			continue
		}
		offset := 0
		for k, i := range idxs {
			n := counts[k]
			sub := indexer.Result{Documents: result.Documents[offset : offset+n]}
			offset += n
			for _, dr := range sub.Documents {
				if dr.Err != nil {
					telemetry.IndexErrors.WithLabelValues(mailbox, "index").Inc()
				} else if dr.Skipped {
					telemetry.DocumentsSkipped.WithLabelValues(mailbox).Inc()
				} else {
					telemetry.DocumentsIndexed.WithLabelValues(mailbox).Inc()
				}
			}
			deliver(reqs[i], Response{Result: sub})
		}
	}
}

func deliver(req Request, resp Response) {
	if req.Result == nil {
		return
	}
	select {
	case req.Result <- resp:
	default:
	}
}
