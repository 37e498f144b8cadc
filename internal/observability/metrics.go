// Package observability bundles the twin's Prometheus metrics and OTel
// tracing setup.
package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citygridlabs/traffic-twin/model"
)

// TwinCollector bundles Prometheus metrics for the twin: HTTP traffic,
// store transactions, simulation tick health, and live entity counts. It
// implements the state machine's Recorder interface.
type TwinCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	StoreTransactions *prometheus.CounterVec
	TickDurations     *prometheus.HistogramVec
	SkippedTicks      *prometheus.CounterVec

	Entities   *prometheus.GaugeVec
	Violations prometheus.Counter
}

// NewTwinCollector registers the twin's metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewTwinCollector(reg prometheus.Registerer) (*TwinCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_http_requests_total",
		Help: "Total handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"})
	httpRequests, err := registerCounterVec(reg, httpRequests, "twin_http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twin_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})
	httpDurations, err = registerHistogramVec(reg, httpDurations, "twin_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_store_transactions_total",
		Help: "Total asset store operations, labeled by operation name.",
	}, []string{"op"})
	transactions, err = registerCounterVec(reg, transactions, "twin_store_transactions_total")
	if err != nil {
		return nil, err
	}

	tickDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twin_tick_duration_seconds",
		Help:    "Simulation tick execution time in seconds, labeled by job.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"job"})
	tickDurations, err = registerHistogramVec(reg, tickDurations, "twin_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_ticks_skipped_total",
		Help: "Ticks suppressed because the previous tick of the same job was still running.",
	}, []string{"job"})
	skipped, err = registerCounterVec(reg, skipped, "twin_ticks_skipped_total")
	if err != nil {
		return nil, err
	}

	entities := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twin_entities",
		Help: "Live number of stored assets, labeled by kind.",
	}, []string{"kind"})
	entities, err = registerGaugeVec(reg, entities, "twin_entities")
	if err != nil {
		return nil, err
	}

	violations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twin_speed_violations_total",
		Help: "Total speed violations recorded by position updates.",
	})
	violations, err = registerCounter(reg, violations, "twin_speed_violations_total")
	if err != nil {
		return nil, err
	}

	return &TwinCollector{
		gatherer:          gatherer,
		HTTPRequests:      httpRequests,
		HTTPDurations:     httpDurations,
		StoreTransactions: transactions,
		TickDurations:     tickDurations,
		SkippedTicks:      skipped,
		Entities:          entities,
		Violations:        violations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TwinCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and durations per route.
func (c *TwinCollector) GinMiddleware() gin.HandlerFunc {
	return func(g *gin.Context) {
		start := time.Now()
		g.Next()

		if c == nil {
			return
		}
		route := g.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(g.Writer.Status())
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(g.Request.Method, route, code).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(g.Request.Method, route).Observe(time.Since(start).Seconds())
		}
	}
}

// Transaction satisfies the state machine's Recorder interface.
func (c *TwinCollector) Transaction(op string) {
	if c == nil || c.StoreTransactions == nil {
		return
	}
	c.StoreTransactions.WithLabelValues(op).Inc()
}

// EntityDelta satisfies the state machine's Recorder interface.
func (c *TwinCollector) EntityDelta(kind model.Kind, delta int) {
	if c == nil || c.Entities == nil {
		return
	}
	c.Entities.WithLabelValues(string(kind)).Add(float64(delta))
}

// Violation satisfies the state machine's Recorder interface.
func (c *TwinCollector) Violation() {
	if c == nil || c.Violations == nil {
		return
	}
	c.Violations.Inc()
}

// ObserveTick feeds the orchestrator's tick observer.
func (c *TwinCollector) ObserveTick(job string, took time.Duration) {
	if c == nil || c.TickDurations == nil {
		return
	}
	c.TickDurations.WithLabelValues(job).Observe(took.Seconds())
}

// TickSkipped feeds the orchestrator's skip hook.
func (c *TwinCollector) TickSkipped(job string) {
	if c == nil || c.SkippedTicks == nil {
		return
	}
	c.SkippedTicks.WithLabelValues(job).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
