package provider

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "dynconf"
	metricsSubsystem = "provider"
)

type metrics struct {
	created          prometheus.Counter
	createFailures   prometheus.Counter
	evicted          prometheus.Counter
	deactivateErrors prometheus.Counter
	cached           prometheus.Gauge
}

func newMetrics(name string, reg prometheus.Registerer) (*metrics, error) {
	labels := prometheus.Labels{"provider": name}
	m := &metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "instances_created_total",
			Help:        "Number of configuration instances created.",
			ConstLabels: labels,
		}),
		createFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "instance_create_failures_total",
			Help:        "Number of failed configuration instance creations, including lifecycle failures.",
			ConstLabels: labels,
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "instances_evicted_total",
			Help:        "Number of idle configuration instances evicted.",
			ConstLabels: labels,
		}),
		deactivateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "deactivation_failures_total",
			Help:        "Number of evicted configuration instances that failed to deactivate.",
			ConstLabels: labels,
		}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "cached_instances",
			Help:        "Number of configuration instances currently cached.",
			ConstLabels: labels,
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.created, err = registerCounter(reg, m.created)
	if err != nil {
		return nil, err
	}
	m.createFailures, err = registerCounter(reg, m.createFailures)
	if err != nil {
		return nil, err
	}
	m.evicted, err = registerCounter(reg, m.evicted)
	if err != nil {
		return nil, err
	}
	m.deactivateErrors, err = registerCounter(reg, m.deactivateErrors)
	if err != nil {
		return nil, err
	}
	if err = reg.Register(m.cached); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.cached = are.ExistingCollector.(prometheus.Gauge)
	}
	return m, nil
}

// registerCounter registers c, or returns the counter already registered by
// a provider with the same name.
func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Counter), nil
		}
		return nil, err
	}
	return c, nil
}
