package metrics

import (
	"sync/atomic"

	"credit-scoring/internal/models"
)

// RequestCounter counts scoring requests since process start. Increments are
// safe under concurrent requests; the value is never reset.
type RequestCounter struct {
	n atomic.Int64
}

func NewRequestCounter() *RequestCounter {
	return &RequestCounter{}
}

// Increment is called once per valid request, before scoring.
func (c *RequestCounter) Increment() {
	c.n.Add(1)
}

// Observe mirrors the decision into the prometheus counter.
func (c *RequestCounter) Observe(decision models.Decision) {
	PredictRequests.WithLabelValues(string(decision)).Inc()
}

func (c *RequestCounter) Value() int64 {
	return c.n.Load()
}
