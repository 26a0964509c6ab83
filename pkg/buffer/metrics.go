package buffer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
)

// bufferMetrics exports buffer activity to a MetricsRegistry. The name is
// used both as a metric label and as the registry component key, so two
// buffers with the same name cannot share a registry.
type bufferMetrics struct {
	registry *metric.MetricsRegistry
	name     string

	writes prometheus.Counter
	drops  prometheus.Counter
	size   prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, name string) (*bufferMetrics, error) {
	m := &bufferMetrics{
		registry: registry,
		name:     name,
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "magicbot",
			Subsystem:   "buffer",
			Name:        "writes_total",
			Help:        "Total items written to the buffer.",
			ConstLabels: prometheus.Labels{"buffer": name},
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "magicbot",
			Subsystem:   "buffer",
			Name:        "drops_total",
			Help:        "Total items dropped due to the overflow policy.",
			ConstLabels: prometheus.Labels{"buffer": name},
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "magicbot",
			Subsystem:   "buffer",
			Name:        "size",
			Help:        "Current number of buffered items.",
			ConstLabels: prometheus.Labels{"buffer": name},
		}),
	}

	component := "buffer." + name
	if err := registry.RegisterCounter(component, "writes_total", m.writes); err != nil {
		return nil, fmt.Errorf("register buffer writes counter: %w", err)
	}
	if err := registry.RegisterCounter(component, "drops_total", m.drops); err != nil {
		return nil, fmt.Errorf("register buffer drops counter: %w", err)
	}
	if err := registry.RegisterGauge(component, "size", m.size); err != nil {
		return nil, fmt.Errorf("register buffer size gauge: %w", err)
	}
	return m, nil
}

func (m *bufferMetrics) recordWrite(size int) {
	m.writes.Inc()
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordRead(size int) {
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordDrop() {
	m.drops.Inc()
}

func (m *bufferMetrics) unregister() {
	component := "buffer." + m.name
	m.registry.Unregister(component, "writes_total")
	m.registry.Unregister(component, "drops_total")
	m.registry.Unregister(component, "size")
}
