package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// WebhookStats counts webhook deliveries by outcome. Every delivery is
// Received and then lands in exactly one of the other buckets.
type WebhookStats struct {
	Received  Counter
	Rejected  Counter
	Duplicate Counter
	Ignored   Counter
	Processed Counter
	Failed    Counter

	processingNanos   Counter
	processingSamples Counter
}

// ObserveProcessing records the dispatch time of one processed or failed
// delivery.
func (s *WebhookStats) ObserveProcessing(d time.Duration) {
	s.processingSamples.Inc()
	if d > 0 {
		s.processingNanos.Add(uint64(d))
	}
}

// CheckoutStats tracks provider session creation and its latency.
type CheckoutStats struct {
	Created Counter
	Failed  Counter

	providerNanos Counter
}

func (s *CheckoutStats) ObserveProvider(d time.Duration) {
	if d > 0 {
		s.providerNanos.Add(uint64(d))
	}
}

type Registry struct {
	Webhooks WebhookStats
	Checkout CheckoutStats
}

func NewRegistry() *Registry {
	return &Registry{}
}

type WebhookSnapshot struct {
	Received            uint64  `json:"received"`
	Rejected            uint64  `json:"rejected"`
	Duplicate           uint64  `json:"duplicate"`
	Ignored             uint64  `json:"ignored"`
	Processed           uint64  `json:"processed"`
	Failed              uint64  `json:"failed"`
	Timed               uint64  `json:"timed"`
	AvgProcessingMillis float64 `json:"avgProcessingMs"`
}

type CheckoutSnapshot struct {
	Created           uint64  `json:"created"`
	Failed            uint64  `json:"failed"`
	AvgProviderMillis float64 `json:"avgProviderMs"`
}

type Snapshot struct {
	Webhooks WebhookSnapshot  `json:"webhooks"`
	Checkout CheckoutSnapshot `json:"checkout"`
}

func (r *Registry) Snapshot() Snapshot {
	var s Snapshot

	w := &r.Webhooks
	s.Webhooks.Received = w.Received.Load()
	s.Webhooks.Rejected = w.Rejected.Load()
	s.Webhooks.Duplicate = w.Duplicate.Load()
	s.Webhooks.Ignored = w.Ignored.Load()
	s.Webhooks.Processed = w.Processed.Load()
	s.Webhooks.Failed = w.Failed.Load()
	s.Webhooks.Timed = w.processingSamples.Load()
	s.Webhooks.AvgProcessingMillis = avgMillis(w.processingNanos.Load(), s.Webhooks.Timed)

	c := &r.Checkout
	s.Checkout.Created = c.Created.Load()
	s.Checkout.Failed = c.Failed.Load()
	s.Checkout.AvgProviderMillis = avgMillis(c.providerNanos.Load(), s.Checkout.Created+s.Checkout.Failed)

	return s
}

func avgMillis(totalNanos, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalNanos) / float64(n) / float64(time.Millisecond)
}
