package probe

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"greetprobe/internal/models"
	"greetprobe/internal/urlutil"
)

// WorkerPool manages a fixed set of goroutines that dispatch probes
// concurrently. At most one request per worker is in flight at a time.
type WorkerPool struct {
	ctx      context.Context
	client   Doer
	endpoint string
	jobs     chan models.Probe
	results  chan<- models.Result
	metrics  *Metrics
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWorkerPool creates a pool of size workers. Finished probes are sent to
// results until ctx is done; after that they are dropped.
func NewWorkerPool(ctx context.Context, client Doer, endpoint string, size int, results chan<- models.Result, metrics *Metrics) *WorkerPool {
	pool := &WorkerPool{
		ctx:      ctx,
		client:   client,
		endpoint: endpoint,
		jobs:     make(chan models.Probe, size),
		results:  results,
		metrics:  metrics,
	}

	pool.startWorkers(size)
	return pool
}

// startWorkers launches the worker goroutines.
func (p *WorkerPool) startWorkers(count int) {
	p.wg.Add(count)
	for i := 0; i < count; i++ {
		go func() {
			defer p.wg.Done()
			for probe := range p.jobs {
				if p.ctx.Err() != nil {
					continue
				}
				p.performProbe(probe)
			}
		}()
	}
}

// Submit queues a probe without blocking. It returns false when the queue is
// full and the probe was not accepted.
func (p *WorkerPool) Submit(probe models.Probe) bool {
	select {
	case p.jobs <- probe:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for all workers to exit. Submit must not be
// called after Stop.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}

// performProbe executes the HTTP GET for a single probe and reports its result.
func (p *WorkerPool) performProbe(probe models.Probe) {
	p.metrics.inFlight.Inc()
	defer p.metrics.inFlight.Dec()

	res := models.Result{ProbeID: probe.ID, StartedAt: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			res.Err = errors.Wrapf(ErrDispatch, "panic during probe: %v", r)
		}
		res.Latency = time.Since(res.StartedAt)
		p.deliver(res)
	}()

	target, err := urlutil.WithRequestID(p.endpoint, probe.ID.String())
	if err != nil {
		res.Err = errors.Wrapf(ErrDispatch, "invalid endpoint: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(p.ctx, http.MethodGet, target, nil)
	if err != nil {
		res.Err = errors.Wrapf(ErrDispatch, "could not build request: %v", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		res.Err = err
		return
	}
	res.StatusCode = resp.StatusCode

	// The body is discarded. Whatever goes wrong once headers are in is an
	// exchange error, whatever type the transport gives it.
	_, err = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	res.Err = markExchange(err)
}

func (p *WorkerPool) deliver(res models.Result) {
	select {
	case p.results <- res:
	case <-p.ctx.Done():
	}
}
