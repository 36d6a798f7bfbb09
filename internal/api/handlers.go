package api

import (
	"io"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"greetprobe/internal/counter"
)

// Greeting is the constant body returned to every probe.
const Greeting = "Hello!"

// Handlers holds the echo service's request counter and metrics.
type Handlers struct {
	requests      *counter.Throttled
	requestsTotal prometheus.Counter
	logger        *log.Logger
}

// NewHandlers creates a new Handlers struct. The request metric is registered
// on reg when it is non-nil; a nil logger falls back to the standard logger.
func NewHandlers(reg prometheus.Registerer, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	h := &Handlers{
		requests: counter.New(counter.DefaultEvery),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "echo_requests_total",
			Help: "Total number of greeting requests served",
		}),
		logger: logger,
	}
	if reg != nil {
		reg.MustRegister(h.requestsTotal)
	}
	return h
}

// Greeting answers every request with the constant greeting. Query
// parameters such as request_id are ignored.
func (h *Handlers) Greeting(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Inc()
	if n, hit := h.requests.Inc(); hit {
		h.logger.Printf("serving request #%d", n)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, Greeting)
}

// RequestCount returns how many greeting requests have been served.
func (h *Handlers) RequestCount() int64 {
	return h.requests.Load()
}

// Healthz is a simple health check endpoint.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
