// Package prometheus adapts ports.Metrics to a private Prometheus registry.
// A CLI run has no scrape endpoint, so the registry is written out as a
// text file once the run is over.
package prometheus

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"massdownloader/internal/application/ports"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements ports.Metrics. Vectors are created on first use; the
// label set of a metric is fixed by that first call, later calls fill
// missing labels with "" and drop unknown ones.
type Metrics struct {
	tags  map[string]string
	store *store
}

type store struct {
	mu         sync.Mutex
	namespace  string
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	labels     map[string][]string
}

// NewMetrics creates a metrics instance whose metric names are prefixed
// with namespace
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		tags: make(map[string]string),
		store: &store{
			namespace:  sanitize(namespace),
			registry:   prometheus.NewRegistry(),
			counters:   make(map[string]*prometheus.CounterVec),
			histograms: make(map[string]*prometheus.HistogramVec),
			gauges:     make(map[string]*prometheus.GaugeVec),
			labels:     make(map[string][]string),
		},
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.store.registry
}

// WriteToFile dumps every metric in the Prometheus text format
func (m *Metrics) WriteToFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.store.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// IncrementCounter increments a counter metric by 1
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.AddCounter(name, 1, tags)
}

// AddCounter increments a counter metric by value
func (m *Metrics) AddCounter(name string, value float64, tags map[string]string) {
	all := m.combineTags(tags)
	vec, labels := m.store.counter(name, all)
	vec.WithLabelValues(labelValues(labels, all)...).Add(value)
}

// RecordHistogram records a value in a histogram distribution
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	all := m.combineTags(tags)
	vec, labels := m.store.histogram(name, all)
	vec.WithLabelValues(labelValues(labels, all)...).Observe(value)
}

// RecordGauge records a point-in-time measurement
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	all := m.combineTags(tags)
	vec, labels := m.store.gauge(name, all)
	vec.WithLabelValues(labelValues(labels, all)...).Set(value)
}

// WithTags returns a new Metrics instance with additional tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		tags:  m.combineTags(tags),
		store: m.store, // Share the same registry
	}
}

// combineTags merges default tags with provided tags
func (m *Metrics) combineTags(tags map[string]string) map[string]string {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[sanitize(k)] = v
	}
	for k, v := range tags {
		all[sanitize(k)] = v
	}
	return all
}

func (s *store) counter(name string, tags map[string]string) (*prometheus.CounterVec, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vec, ok := s.counters[name]; ok {
		return vec, s.labels["counter:"+name]
	}

	labels := sortedKeys(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: s.namespace,
		Name:      sanitize(name) + "_total",
		Help:      fmt.Sprintf("Counter %s", name),
	}, labels)
	s.registry.MustRegister(vec)
	s.counters[name] = vec
	s.labels["counter:"+name] = labels
	return vec, labels
}

func (s *store) histogram(name string, tags map[string]string) (*prometheus.HistogramVec, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vec, ok := s.histograms[name]; ok {
		return vec, s.labels["histogram:"+name]
	}

	labels := sortedKeys(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: s.namespace,
		Name:      sanitize(name),
		Help:      fmt.Sprintf("Histogram %s", name),
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, labels)
	s.registry.MustRegister(vec)
	s.histograms[name] = vec
	s.labels["histogram:"+name] = labels
	return vec, labels
}

func (s *store) gauge(name string, tags map[string]string) (*prometheus.GaugeVec, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vec, ok := s.gauges[name]; ok {
		return vec, s.labels["gauge:"+name]
	}

	labels := sortedKeys(tags)
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: s.namespace,
		Name:      sanitize(name),
		Help:      fmt.Sprintf("Gauge %s", name),
	}, labels)
	s.registry.MustRegister(vec)
	s.gauges[name] = vec
	s.labels["gauge:"+name] = labels
	return vec, labels
}

func sortedKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelValues(labels []string, tags map[string]string) []string {
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = tags[label]
	}
	return values
}

// sanitize turns "retrieval.source_files" into "retrieval_source_files"
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
