// Package health backs the /health, /ready, and /live probes (A4): it
// combines the component-level status computed by internal/servicer with a
// host resource sample, adapted from an internal/utils/memory.MemoryMonitor
// shape (gopsutil-backed virtual memory sampling with a short cache window)
// generalized from upload-admission control to a readiness signal.
package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"inference-service/proto"
)

// HealthReporter is the subset of servicer.Servicer Checker depends on.
type HealthReporter interface {
	Health(ctx context.Context, req *proto.HealthRequest) (*proto.HealthResponse, error)
}

// ResourceSample is a point-in-time host resource snapshot.
type ResourceSample struct {
	MemoryAvailableMB int64
	MemoryUsedPercent float64
	CPUUsedPercent    float64
}

// Report is the combined result returned by Checker.Check.
type Report struct {
	Status           string
	DetectorLoaded   bool
	PublisherHealthy bool
	QueueDepth       int32
	Resources        ResourceSample
}

// Checker samples host resources on a cache window (sampling both memory
// and CPU on every request is wasteful for a probe hit every few seconds)
// and combines them with the Servicer's component-level health.
type Checker struct {
	reporter HealthReporter

	cacheDuration time.Duration
	cached        ResourceSample
	cachedAt      time.Time
}

// NewChecker constructs a Checker. A zero cacheDuration disables caching.
func NewChecker(reporter HealthReporter, cacheDuration time.Duration) *Checker {
	return &Checker{reporter: reporter, cacheDuration: cacheDuration}
}

// Check samples host resources (cached) and the component health report.
func (c *Checker) Check(ctx context.Context) (Report, error) {
	resp, err := c.reporter.Health(ctx, &proto.HealthRequest{})
	if err != nil {
		return Report{}, err
	}

	return Report{
		Status:           resp.Status,
		DetectorLoaded:   resp.DetectorLoaded,
		PublisherHealthy: resp.PublisherHealthy,
		QueueDepth:       resp.QueueDepth,
		Resources:        c.sampleResources(),
	}, nil
}

func (c *Checker) sampleResources() ResourceSample {
	if c.cached != (ResourceSample{}) && time.Since(c.cachedAt) < c.cacheDuration {
		return c.cached
	}

	sample := ResourceSample{}
	if vm, err := mem.VirtualMemory(); err == nil {
		sample.MemoryAvailableMB = int64(vm.Available) / 1024 / 1024
		sample.MemoryUsedPercent = vm.UsedPercent
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		sample.CPUUsedPercent = pcts[0]
	}

	c.cached = sample
	c.cachedAt = time.Now()
	return sample
}

// Ready reports whether the service should receive traffic: the detector
// must be loaded. A disconnected publisher degrades the health report but
// does not pull the pod from rotation — inference still works even if
// results can't be published.
func (r Report) Ready() bool {
	return r.DetectorLoaded
}

// Live reports whether the process should be restarted. A process that can
// still answer this check is alive regardless of component health.
func (r Report) Live() bool {
	return true
}
