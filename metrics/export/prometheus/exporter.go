package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/metrics/export/internaldefs"
)

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source internaldefs.Source
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [goLink.Engine].
func NewPrometheusExporter(engine *goLink.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// value exposing the engine snapshot, audit stats and pending count.
func NewPrometheusExporterFromSource(source internaldefs.Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics. The output is empty while the engine
// has metrics disabled and its audit queue never lost an event.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	stats := internaldefs.ReadStats(p.source)
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 &&
		stats.Audit.Dropped == 0 && stats.Audit.SinkPanics == 0 {
		return ""
	}

	w := &exposition{}
	w.b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		w.family(def.Name, def.Help, "counter")
		w.sample(def.Name, "", strconv.FormatUint(snapshot.Counters[def.ID], 10))
	}

	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		w.family(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			w.sample(def.Name+"_bucket", `le="`+le+`"`, strconv.FormatUint(cumulative[i], 10))
		}
		w.sample(def.Name+"_count", "", strconv.FormatUint(cumulative[len(cumulative)-1], 10))
		// Snapshots carry bucket counts only.
		w.sample(def.Name+"_sum", "", "0")
	}

	for _, def := range internaldefs.StatDefs {
		kind := "counter"
		if def.Kind == internaldefs.StatGauge {
			kind = "gauge"
		}
		w.family(def.Name, def.Help, kind)
		w.sample(def.Name, "", strconv.FormatInt(def.Value(stats), 10))
	}

	return w.b.String()
}

type exposition struct {
	b strings.Builder
}

func (w *exposition) family(name, help, kind string) {
	w.b.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.b.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (w *exposition) sample(name, labels, value string) {
	w.b.WriteString(name)
	if labels != "" {
		w.b.WriteString("{" + labels + "}")
	}
	w.b.WriteString(" " + value + "\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
