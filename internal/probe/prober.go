// Package probe runs the continuous probe: one GET against a fixed endpoint per
// tick, dispatched on a bounded worker pool, with every completion classified
// in a single loop that owns logging and accounting.
package probe

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"greetprobe/internal/config"
	"greetprobe/internal/counter"
	"greetprobe/internal/models"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultMaxInFlight  = 32
	DefaultHTTPTimeout  = 5 * time.Second
)

// Options configures a Prober. Only Endpoint is required.
type Options struct {
	Endpoint     string
	TickInterval time.Duration
	MaxInFlight  int
	Client       Doer
	Logger       *log.Logger
	Registerer   prometheus.Registerer
}

// Stats is a snapshot of the prober's counters.
type Stats struct {
	Successes          int64
	ConnectionFailures int64
	OtherFailures      int64
	SkippedTicks       int64
}

// Prober issues one request per tick against its endpoint until stopped.
type Prober struct {
	endpoint     string
	tickInterval time.Duration
	maxInFlight  int
	client       Doer
	logger       *log.Logger
	metrics      *Metrics

	successes     *counter.Throttled
	connFailures  *counter.Throttled
	skippedTicks  *counter.Throttled
	otherFailures atomic.Int64
}

// New creates a Prober. A blank endpoint is a configuration error.
func New(opts Options) (*Prober, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, &config.ConfigurationError{Key: "SERVER_URL", Reason: "is not set or its value is blank"}
	}

	p := &Prober{
		endpoint:     opts.Endpoint,
		tickInterval: opts.TickInterval,
		maxInFlight:  opts.MaxInFlight,
		client:       opts.Client,
		logger:       opts.Logger,
		metrics:      NewMetrics(opts.Registerer),
		successes:    counter.New(counter.DefaultEvery),
		connFailures: counter.New(counter.DefaultEvery),
		skippedTicks: counter.New(counter.DefaultEvery),
	}
	if p.tickInterval <= 0 {
		p.tickInterval = DefaultTickInterval
	}
	if p.maxInFlight <= 0 {
		p.maxInFlight = DefaultMaxInFlight
	}
	if p.client == nil {
		p.client = NewHTTPClient(config.ProtocolHTTP1, DefaultHTTPTimeout)
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p, nil
}

// Run probes the endpoint until ctx is canceled, which returns nil, or until a
// probe fails in a way that is neither a connection failure nor an ordinary
// exchange error, which returns that error. Run blocks for the whole run.
func (p *Prober) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	results := make(chan models.Result, p.maxInFlight)
	pool := NewWorkerPool(ctx, p.client, p.endpoint, p.maxInFlight, results, p.metrics)
	defer func() {
		cancel()
		pool.Stop()
		p.logger.Println("probe client shutting down")
	}()

	p.logger.Printf("probing %s every %s (max in flight: %d)", p.endpoint, p.tickInterval, p.maxInFlight)
	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.dispatch(pool)
		case res := <-results:
			if err := p.record(ctx, res); err != nil {
				p.logger.Printf("error: %v", err)
				return err
			}
		}
	}
}

// Stats returns the current counter values. It is safe to call while Run is active.
func (p *Prober) Stats() Stats {
	return Stats{
		Successes:          p.successes.Load(),
		ConnectionFailures: p.connFailures.Load(),
		OtherFailures:      p.otherFailures.Load(),
		SkippedTicks:       p.skippedTicks.Load(),
	}
}

// dispatch hands a fresh probe to the pool. A saturated pool drops the tick.
func (p *Prober) dispatch(pool *WorkerPool) {
	probe := models.Probe{ID: models.NewRequestID(), TickedAt: time.Now()}
	if pool.Submit(probe) {
		return
	}

	p.metrics.skippedTicks.Inc()
	if n, hit := p.skippedTicks.Inc(); n == 1 || hit {
		p.logger.Printf("dispatch pool saturated, %d ticks skipped so far", n)
	}
}

// record classifies one finished probe and updates counters and logs.
// Results arriving after cancellation are abandoned.
func (p *Prober) record(ctx context.Context, res models.Result) error {
	if ctx.Err() != nil {
		return nil
	}

	kind := Classify(res.Err)
	p.metrics.observe(kind)

	switch kind {
	case models.Success:
		if n, hit := p.successes.Inc(); hit {
			p.logger.Printf("successful request count: %d", n)
		}
	case models.ConnectionFailure:
		if n, hit := p.connFailures.Inc(); hit {
			p.logger.Printf("error: cannot connect to url %s (attempt %d)", p.endpoint, n)
		}
	case models.OtherFailure:
		p.otherFailures.Add(1)
		p.logger.Printf("error: request %s failed: %v", res.ProbeID, res.Err)
	default:
		return errors.Wrapf(res.Err, "unrecognized failure for request %s", res.ProbeID)
	}
	return nil
}
