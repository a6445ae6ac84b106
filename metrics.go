package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SetMetrics struct {
	Inserts  metrics.Counter
	Contains metrics.Counter
	Removes  metrics.Counter
	Epochs   metrics.Counter
}

func NewSetMetrics(prometheusAddr string) *SetMetrics {

	m := &SetMetrics{}

	if prometheusAddr == "" {
		m.Inserts = discard.NewCounter()
		m.Contains = discard.NewCounter()
		m.Removes = discard.NewCounter()
		m.Epochs = discard.NewCounter()
	} else {
		m.Inserts = prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "bintree",
			Subsystem: "set",
			Name:      "inserts_total",
			Help:      "Number of insert operations",
		}, nil)
		m.Contains = prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "bintree",
			Subsystem: "set",
			Name:      "contains_total",
			Help:      "Number of membership tests",
		}, nil)
		m.Removes = prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "bintree",
			Subsystem: "set",
			Name:      "removes_total",
			Help:      "Number of remove operations",
		}, nil)
		m.Epochs = prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "bintree",
			Subsystem: "set",
			Name:      "gc_epochs_total",
			Help:      "Number of requested compaction epochs",
		}, nil)
	}

	return m
}

func runPromHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return
	}

	http.Handle("/metrics", promhttp.Handler())

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
