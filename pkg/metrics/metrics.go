// Package metrics keeps a process-wide Prometheus registry behind a small
// name+labels API. Label names of a family are fixed by its first use; later
// calls missing a label record it as "".
package metrics

import (
	"bytes"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

var (
	mu        sync.Mutex
	reg       = prometheus.NewRegistry()
	counters  = map[string]*prometheus.CounterVec{}
	gauges    = map[string]*prometheus.GaugeVec{}
	summaries = map[string]*prometheus.SummaryVec{}
	names     = map[string][]string{}
)

var objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

func labelNames(name string, labels map[string]string) []string {
	if ln, ok := names[name]; ok {
		return ln
	}
	ln := make([]string, 0, len(labels))
	for k := range labels {
		ln = append(ln, k)
	}
	sort.Strings(ln)
	names[name] = ln
	return ln
}

func values(ln []string, labels map[string]string) []string {
	out := make([]string, len(ln))
	for i, k := range ln {
		out[i] = labels[k]
	}
	return out
}

// Inc adds one to counter name.
func Inc(name string, labels map[string]string) { Add(name, labels, 1) }

// Add adds v (>= 0) to counter name.
func Add(name string, labels map[string]string, v float64) {
	mu.Lock()
	defer mu.Unlock()
	vec, ok := counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labelNames(name, labels))
		reg.MustRegister(vec)
		counters[name] = vec
	}
	vec.WithLabelValues(values(names[name], labels)...).Add(v)
}

func gauge(name string, labels map[string]string) prometheus.Gauge {
	vec, ok := gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labelNames(name, labels))
		reg.MustRegister(vec)
		gauges[name] = vec
	}
	return vec.WithLabelValues(values(names[name], labels)...)
}

// SetGauge sets gauge name to v.
func SetGauge(name string, labels map[string]string, v float64) {
	mu.Lock()
	defer mu.Unlock()
	gauge(name, labels).Set(v)
}

// AddGauge adds delta (may be negative) to gauge name.
func AddGauge(name string, labels map[string]string, delta float64) {
	mu.Lock()
	defer mu.Unlock()
	gauge(name, labels).Add(delta)
}

// ObserveSummary records v (usually milliseconds) in summary name.
func ObserveSummary(name string, labels map[string]string, v float64) {
	mu.Lock()
	defer mu.Unlock()
	vec, ok := summaries[name]
	if !ok {
		vec = prometheus.NewSummaryVec(prometheus.SummaryOpts{Name: name, Help: name, Objectives: objectives}, labelNames(name, labels))
		reg.MustRegister(vec)
		summaries[name] = vec
	}
	vec.WithLabelValues(values(names[name], labels)...).Observe(v)
}

// Gatherer always reads the current registry, so it stays valid across Reset.
func Gatherer() prometheus.Gatherer {
	return prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		mu.Lock()
		r := reg
		mu.Unlock()
		return r.Gather()
	})
}

// DumpProm renders every family in the text exposition format.
func DumpProm() string {
	mfs, err := Gatherer().Gather()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// Reset drops every family. Tests call it before asserting on DumpProm.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	reg = prometheus.NewRegistry()
	counters = map[string]*prometheus.CounterVec{}
	gauges = map[string]*prometheus.GaugeVec{}
	summaries = map[string]*prometheus.SummaryVec{}
	names = map[string][]string{}
}
