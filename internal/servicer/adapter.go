package servicer

import "inference-service/internal/publisher"

// publisherHealthAdapter adapts *publisher.Publisher's Health snapshot to
// the single-method PublisherHealth interface Servicer depends on, keeping
// Servicer decoupled from the full publisher.Health struct shape.
type publisherHealthAdapter struct {
	pub *publisher.Publisher
}

// NewPublisherHealth wraps a Publisher for use as a Servicer's
// PublisherHealth dependency.
func NewPublisherHealth(pub *publisher.Publisher) PublisherHealth {
	return publisherHealthAdapter{pub: pub}
}

func (a publisherHealthAdapter) Healthy() bool {
	return a.pub.Health().Healthy
}
