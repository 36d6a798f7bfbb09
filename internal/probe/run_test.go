package probe

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type errDoer struct {
	err error
}

func (d errDoer) Do(*http.Request) (*http.Response, error) {
	return nil, d.err
}

type panicDoer struct{}

func (panicDoer) Do(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

type runHarness struct {
	prober *Prober
	out    *syncBuffer
	cancel context.CancelFunc
	done   chan error
}

func startRun(opts Options) *runHarness {
	out := &syncBuffer{}
	opts.Logger = log.New(out, "", 0)
	if opts.TickInterval == 0 {
		opts.TickInterval = 2 * time.Millisecond
	}
	p, err := New(opts)
	Expect(err).NotTo(HaveOccurred())

	ctx, cancel := context.WithCancel(context.Background())
	h := &runHarness{prober: p, out: out, cancel: cancel, done: make(chan error, 1)}
	go func() {
		h.done <- p.Run(ctx)
	}()
	return h
}

func (h *runHarness) stop() {
	h.cancel()
	Eventually(h.done, "5s").Should(Receive(BeNil()))
}

var _ = Describe("Run", func() {
	var h *runHarness

	Context("when the endpoint answers", func() {
		var (
			srv        *httptest.Server
			requestIDs chan string
		)

		BeforeEach(func() {
			requestIDs = make(chan string, 1024)
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case requestIDs <- r.URL.Query().Get("request_id"):
				default:
				}
				// Any status counts as a completed exchange.
				w.WriteHeader(http.StatusTeapot)
			}))
			h = startRun(Options{Endpoint: srv.URL + "/api/greeting", MaxInFlight: 4})
		})

		AfterEach(func() {
			h.stop()
			srv.Close()
		})

		It("counts successes and logs every tenth", func() {
			Eventually(func() int64 { return h.prober.Stats().Successes }, "5s", "5ms").Should(BeNumerically(">=", 20))
			Expect(h.out.String()).To(ContainSubstring("successful request count: 10\n"))
			Expect(h.out.String()).To(ContainSubstring("successful request count: 20\n"))
			Expect(h.prober.Stats().ConnectionFailures).To(BeZero())
		})

		It("tags every request with a fresh uuid", func() {
			seen := map[string]bool{}
			for i := 0; i < 5; i++ {
				var id string
				Eventually(requestIDs, "5s").Should(Receive(&id))
				_, err := uuid.Parse(id)
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).NotTo(HaveKey(id))
				seen[id] = true
			}
		})
	})

	Context("when the endpoint refuses connections", func() {
		var addr string

		BeforeEach(func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			addr = ln.Addr().String()
			ln.Close()
			h = startRun(Options{Endpoint: "http://" + addr + "/api/greeting"})
		})

		AfterEach(func() {
			h.stop()
		})

		It("keeps probing and throttles the error log", func() {
			Eventually(func() int64 { return h.prober.Stats().ConnectionFailures }, "5s", "5ms").Should(BeNumerically(">=", 25))
			Consistently(h.done, "50ms").ShouldNot(Receive())

			expected := fmt.Sprintf("cannot connect to url http://%s/api/greeting (attempt 20)", addr)
			Expect(h.out.String()).To(ContainSubstring(expected))
			Expect(h.out.String()).NotTo(ContainSubstring("(attempt 5)"))
			Expect(h.prober.Stats().Successes).To(BeZero())
		})
	})

	Context("when requests time out", func() {
		var (
			srv     *httptest.Server
			release chan struct{}
		)

		BeforeEach(func() {
			release = make(chan struct{})
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			h = startRun(Options{
				Endpoint: srv.URL,
				Client:   NewHTTPClient("http1", 10*time.Millisecond),
			})
		})

		AfterEach(func() {
			h.stop()
			close(release)
			srv.Close()
		})

		It("logs each failure individually without stopping", func() {
			Eventually(func() int64 { return h.prober.Stats().OtherFailures }, "5s", "5ms").Should(BeNumerically(">=", 3))
			Consistently(h.done, "50ms").ShouldNot(Receive())
			Expect(h.out.count("failed: ")).To(BeNumerically(">=", 3))
			Expect(h.prober.Stats().Successes).To(BeZero())
			Expect(h.prober.Stats().ConnectionFailures).To(BeZero())
		})
	})

	Context("when the endpoint sends malformed bodies", func() {
		var stopServer func()

		BeforeEach(func() {
			var base string
			base, stopServer = serveMalformedChunks()
			h = startRun(Options{Endpoint: base + "/api/greeting", MaxInFlight: 4})
		})

		AfterEach(func() {
			h.stop()
			stopServer()
		})

		It("tolerates them as individually logged failures", func() {
			Eventually(func() int64 { return h.prober.Stats().OtherFailures }, "5s", "5ms").Should(BeNumerically(">=", 5))
			Consistently(h.done, "50ms").ShouldNot(Receive())
			Expect(h.out.String()).To(ContainSubstring("invalid byte in chunk length"))
			Expect(h.prober.Stats().Successes).To(BeZero())
			Expect(h.prober.Stats().ConnectionFailures).To(BeZero())
		})
	})

	Context("when the pool is saturated", func() {
		var (
			srv     *httptest.Server
			release chan struct{}
			reg     *prometheus.Registry
		)

		BeforeEach(func() {
			release = make(chan struct{})
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			reg = prometheus.NewRegistry()
			h = startRun(Options{Endpoint: srv.URL, MaxInFlight: 1, Registerer: reg})
		})

		AfterEach(func() {
			h.stop()
			close(release)
			srv.Close()
		})

		It("skips ticks instead of queueing without bound", func() {
			Eventually(func() int64 { return h.prober.Stats().SkippedTicks }, "5s", "5ms").Should(BeNumerically(">=", 10))
			Expect(h.out.String()).To(ContainSubstring("dispatch pool saturated, 1 ticks skipped so far"))
			Expect(testutil.ToFloat64(h.prober.metrics.inFlight)).To(BeNumerically("<=", 1))
			Expect(testutil.ToFloat64(h.prober.metrics.skippedTicks)).To(BeNumerically(">=", 10))
		})
	})

	Context("when the transport fails in an unrecognized way", func() {
		It("ends the run with the error", func() {
			boom := errors.New("boom")
			h = startRun(Options{Endpoint: "http://echo.test/api/greeting", Client: errDoer{err: boom}})

			var err error
			Eventually(h.done, "5s").Should(Receive(&err))
			Expect(errors.Cause(err)).To(Equal(boom))
			Expect(h.out.String()).To(ContainSubstring("probe client shutting down\n"))
		})

		It("ends the run when a worker panics", func() {
			h = startRun(Options{Endpoint: "http://echo.test/api/greeting", Client: panicDoer{}})

			var err error
			Eventually(h.done, "5s").Should(Receive(&err))
			Expect(errors.Is(err, ErrDispatch)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("transport exploded"))
		})

		It("ends the run when the endpoint cannot form a request", func() {
			h = startRun(Options{Endpoint: "not a url", Client: errDoer{err: errors.New("unreachable")}})

			var err error
			Eventually(h.done, "5s").Should(Receive(&err))
			Expect(errors.Is(err, ErrDispatch)).To(BeTrue())
			Expect(strings.Count(h.out.String(), "probe client shutting down")).To(Equal(1))
		})
	})

	Context("when canceled from outside", func() {
		It("returns nil and logs shutdown", func() {
			h = startRun(Options{Endpoint: "http://echo.test/api/greeting", Client: errDoer{err: timeoutErr}})
			Eventually(func() int64 { return h.prober.Stats().OtherFailures }, "5s", "5ms").Should(BeNumerically(">=", 1))

			h.stop()
			Expect(h.out.String()).To(ContainSubstring("probe client shutting down"))
		})
	})
})
