// internal/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/sunhome-poller/internal/registers"
)

// Namespace prefixes every metric name.
const Namespace = "sunhome"

// Collector turns poll outcomes into Prometheus series.
// It satisfies poller.Recorder.
type Collector struct {
	table *registers.Table

	polls      *prometheus.CounterVec
	duration   prometheus.Histogram
	reconnects *prometheus.CounterVec
	generation prometheus.Gauge
	linkUp     prometheus.Gauge
	values     *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, table *registers.Table) (*Collector, error) {
	c := &Collector{
		table: table,
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of completed poll cycles.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnects_total",
			Help:      "Forced reconnects by result.",
		}, []string{"result"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "snapshot_generation",
			Help:      "Generation of the latest published snapshot.",
		}),
		linkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "link_connected",
			Help:      "1 when the Modbus link holds a connection.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "register_value",
			Help:      "Latest decoded value of numeric registers.",
		}, []string{"address", "name"}),
	}

	for _, col := range []prometheus.Collector{
		c.polls, c.duration, c.reconnects, c.generation, c.linkUp, c.values,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// PollDone counts a cycle. Skipped ticks are counted but not timed.
func (c *Collector) PollDone(result string, took time.Duration) {
	c.polls.WithLabelValues(result).Inc()
	if took > 0 {
		c.duration.Observe(took.Seconds())
	}
}

// Reconnect counts a forced reconnect.
func (c *Collector) Reconnect(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.reconnects.WithLabelValues(result).Inc()
}

// LinkUp sets the link gauge.
func (c *Collector) LinkUp(up bool) {
	if up {
		c.linkUp.Set(1)
		return
	}
	c.linkUp.Set(0)
}

// Published exports the generation and every numeric mapped value.
// Enum registers are skipped.
func (c *Collector) Published(generation uint64, mapped registers.Values) {
	c.generation.Set(float64(generation))

	for addr, v := range mapped {
		if v.Kind != registers.KindNumber {
			continue
		}
		spec, ok := c.table.Lookup(addr)
		if !ok {
			continue
		}
		c.values.WithLabelValues(strconv.Itoa(int(addr)), spec.Name).Set(v.Number)
	}
}
