// Copyright 2025 The Armature Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// tracerName is the OpenTelemetry tracer name for cache operations.
const tracerName = "armature/cache"

// Metrics holds the Prometheus collectors for cache operations, labeled
// by backend.
type Metrics struct {
	hitsTotal         *prometheus.CounterVec
	missesTotal       *prometheus.CounterVec
	evictionsTotal    *prometheus.CounterVec
	sizeGauge         *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// metrics returns the process-wide cache metrics instance.
func metrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})

	return metricsInstance
}

func newMetrics() *Metrics {
	return &Metrics{
		hitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armature_cache_hits_total",
			Help: "Total number of cache hits.",
		}, []string{"backend"}),
		missesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armature_cache_misses_total",
			Help: "Total number of cache misses.",
		}, []string{"backend"}),
		evictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armature_cache_evictions_total",
			Help: "Total number of cache entries evicted by the LRU bound.",
		}, []string{"backend"}),
		sizeGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "armature_cache_entries",
			Help: "Current number of cache entries.",
		}, []string{"backend"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "armature_cache_operation_duration_seconds",
			Help:    "Duration of cache operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
	}
}

// RegisterMetrics registers the cache collectors with a Prometheus
// registry. Collectors are created lazily on first cache use, so call
// this after building the store.
func RegisterMetrics(registry *prometheus.Registry) {
	m := metrics()
	registry.MustRegister(
		m.hitsTotal,
		m.missesTotal,
		m.evictionsTotal,
		m.sizeGauge,
		m.operationDuration,
	)
}
