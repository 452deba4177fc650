package observability

import (
	"time"

	"github.com/geocoder89/perfeval/internal/store"
)

// ObserveStore implements store.Observer.
func (p *Prom) ObserveStore(collection, op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.StoreErrorsTotal.WithLabelValues(collection, op, store.Classify(err)).Inc()
	}
	p.StoreOpDuration.WithLabelValues(collection, op, status).Observe(time.Since(start).Seconds())
	return err
}

var _ store.Observer = (*Prom)(nil)
