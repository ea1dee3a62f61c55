package prometheus

import (
	"net/http"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source is the read side of an engine. *blogauth.Engine satisfies it.
type Source interface {
	MetricsSnapshot() blogauth.MetricsSnapshot
	AuditDropped() uint64
	StoreDegraded() bool
}

// Collector adapts engine metrics to a prometheus.Collector. Values are read
// from the engine snapshot at scrape time; nothing is double-counted.
type Collector struct {
	source        Source
	counters      map[blogauth.MetricID]*prometheus.Desc
	histograms    map[blogauth.MetricID]*prometheus.Desc
	auditDropped  *prometheus.Desc
	storeDegraded *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector reading from source.
func NewCollector(source Source) *Collector {
	c := &Collector{
		source:        source,
		counters:      make(map[blogauth.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms:    make(map[blogauth.MetricID]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped:  prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		storeDegraded: prometheus.NewDesc(internaldefs.StoreDegradedName, internaldefs.StoreDegradedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range internaldefs.CounterDefs {
		ch <- c.counters[def.ID]
	}
	for _, def := range internaldefs.HistogramDefs {
		ch <- c.histograms[def.ID]
	}
	ch <- c.auditDropped
	ch <- c.storeDegraded
}

// Collect implements prometheus.Collector. Counters absent from the snapshot,
// as when engine metrics are disabled, are not emitted.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		v, ok := snapshot.Counters[def.ID]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.counters[def.ID], prometheus.CounterValue, float64(v))
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		// the engine keeps bucket counts only, so the sum is not available
		ch <- prometheus.MustNewConstHistogram(c.histograms[def.ID], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))

	var degraded float64
	if c.source.StoreDegraded() {
		degraded = 1
	}
	ch <- prometheus.MustNewConstMetric(c.storeDegraded, prometheus.GaugeValue, degraded)
}

// Handler serves source's metrics from a private registry. Callers that
// already run a registry should register [NewCollector] there instead.
func Handler(source Source) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(source)); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
