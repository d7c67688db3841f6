package otel

import (
	"context"
	"errors"
	"fmt"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// reading is the state collected once per callback.
type reading struct {
	snapshot goLink.MetricsSnapshot
	stats    internaldefs.Stats
	// cumulative histogram buckets keyed by metric id
	buckets map[goLink.MetricID][8]uint64
}

type observation struct {
	instrument metric.Int64Observable
	value      func(*reading) int64
}

// OTelExporter publishes engine counters, histogram buckets and engine state
// as observable instruments on a caller supplied meter. Values are read on
// each collection.
type OTelExporter struct {
	source       internaldefs.Source
	registration metric.Registration
	observations []observation
}

// NewOTelExporter registers instruments for engine on meter.
func NewOTelExporter(meter metric.Meter, engine *goLink.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source internaldefs.Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := exporter.counter(meter, def.Name, def.Help, func(r *reading) int64 {
			return int64(r.snapshot.Counters[id])
		}); err != nil {
			return nil, err
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			if err := exporter.gauge(meter, def.Name+"_bucket_le_"+suffix, "Cumulative histogram bucket count.", func(r *reading) int64 {
				return int64(r.buckets[id][i])
			}); err != nil {
				return nil, err
			}
		}
		if err := exporter.gauge(meter, def.Name+"_count", "Histogram total sample count.", func(r *reading) int64 {
			return int64(r.buckets[id][7])
		}); err != nil {
			return nil, err
		}
	}

	for _, def := range internaldefs.StatDefs {
		value := def.Value
		observe := func(r *reading) int64 { return value(r.stats) }
		var err error
		if def.Kind == internaldefs.StatGauge {
			err = exporter.gauge(meter, def.Name, def.Help, observe)
		} else {
			err = exporter.counter(meter, def.Name, def.Help, observe)
		}
		if err != nil {
			return nil, err
		}
	}

	instruments := make([]metric.Observable, len(exporter.observations))
	for i, o := range exporter.observations {
		instruments[i] = o.instrument
	}

	registration, err := meter.RegisterCallback(exporter.collect, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) counter(meter metric.Meter, name, help string, value func(*reading) int64) error {
	ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", name, err)
	}
	e.observations = append(e.observations, observation{instrument: ins, value: value})
	return nil
}

func (e *OTelExporter) gauge(meter metric.Meter, name, help string, value func(*reading) int64) error {
	ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable gauge %s: %w", name, err)
	}
	e.observations = append(e.observations, observation{instrument: ins, value: value})
	return nil
}

func (e *OTelExporter) collect(_ context.Context, observer metric.Observer) error {
	r := &reading{
		snapshot: e.source.MetricsSnapshot(),
		stats:    internaldefs.ReadStats(e.source),
		buckets:  make(map[goLink.MetricID][8]uint64, len(internaldefs.HistogramDefs)),
	}
	for _, def := range internaldefs.HistogramDefs {
		r.buckets[def.ID] = internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(r.snapshot.Histograms[def.ID]))
	}

	for _, o := range e.observations {
		observer.ObserveInt64(o.instrument, o.value(r))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
