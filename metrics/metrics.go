/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics collects the daemon's Prometheus counters and gauges and
// serves them over HTTP, following ptp/sptp/stats's PrometheusExporter.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Registry holds every counter/gauge the daemon exports. The readiness
// loop, duplicate set, DLEP sessions and MPR selector each accept a
// Registry (or, package by package, the narrow interface they actually
// call) so tests can substitute a no-op.
type Registry struct {
	reg *prometheus.Registry

	readinessWakes  prometheus.Counter
	dupClassify     *prometheus.CounterVec
	dlepSignals     *prometheus.CounterVec
	dlepSessions    prometheus.Gauge
	mprSelections   *prometheus.CounterVec
	mprSelectedSize *prometheus.GaugeVec
}

// New builds a Registry with every metric registered.
func New() *Registry {
	r := prometheus.NewRegistry()
	m := &Registry{
		reg: r,
		readinessWakes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oonf_readiness_wakes_total",
			Help: "Readiness loop iterations that returned from epoll_wait.",
		}),
		dupClassify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oonf_duplicate_set_classifications_total",
			Help: "Duplicate-set classification outcomes, by result.",
		}, []string{"result"}),
		dlepSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oonf_dlep_signals_total",
			Help: "DLEP signals sent or received, by direction and signal type.",
		}, []string{"direction", "signal"}),
		dlepSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oonf_dlep_sessions_active",
			Help: "Number of DLEP sessions currently established.",
		}),
		mprSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oonf_mpr_selections_total",
			Help: "Completed MPR selection runs, by domain.",
		}, []string{"domain"}),
		mprSelectedSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oonf_mpr_selected_size",
			Help: "Number of neighbors selected as MPR, by domain.",
		}, []string{"domain"}),
	}
	r.MustRegister(
		m.readinessWakes,
		m.dupClassify,
		m.dlepSignals,
		m.dlepSessions,
		m.mprSelections,
		m.mprSelectedSize,
	)
	return m
}

// ObserveReadinessWake records one readiness loop iteration.
func (m *Registry) ObserveReadinessWake() {
	m.readinessWakes.Inc()
}

// ObserveDuplicateClassification records one dupset classification outcome.
func (m *Registry) ObserveDuplicateClassification(result string) {
	m.dupClassify.WithLabelValues(result).Inc()
}

// ObserveDLEPSignal records one DLEP signal sent or received.
func (m *Registry) ObserveDLEPSignal(direction, signal string) {
	m.dlepSignals.WithLabelValues(direction, signal).Inc()
}

// SetDLEPSessionsActive reports the current DLEP session count.
func (m *Registry) SetDLEPSessionsActive(n int) {
	m.dlepSessions.Set(float64(n))
}

// ObserveMPRSelection records one completed MPR selection run and the
// resulting MPR set size for domain.
func (m *Registry) ObserveMPRSelection(domain string, selected int) {
	m.mprSelections.WithLabelValues(domain).Inc()
	m.mprSelectedSize.WithLabelValues(domain).Set(float64(selected))
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve starts an HTTP server exposing Handler at /metrics on port. It
// blocks, logging fatally on failure, mirroring
// PrometheusExporter.Start's shape.
func (m *Registry) Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), mux))
}
