package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgeo/drivers/ism8/ism8"
)

const metricsNamespace = "ism8"

// engineCollector exports engine metrics and numeric datapoint values.
// Values are read from the engine on every scrape.
type engineCollector struct {
	engine *ism8.Engine

	counters  map[string]*prometheus.Desc
	connected *prometheus.Desc
	retained  *prometheus.Desc
	uptime    *prometheus.Desc
	latency   *prometheus.Desc
	value     *prometheus.Desc
	updated   *prometheus.Desc
}

func newEngineCollector(engine *ism8.Engine) *engineCollector {
	counter := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, nil)
	}
	labels := []string{"id", "device", "name", "type"}

	return &engineCollector{
		engine: engine,
		counters: map[string]*prometheus.Desc{
			"connections":        counter("connections_total", "Module connections accepted."),
			"disconnects":        counter("disconnects_total", "Module connections closed."),
			"rejected":           counter("connections_rejected_total", "Connections refused while a module was attached."),
			"bytes_received":     counter("received_bytes_total", "Bytes received from the module."),
			"frames_received":    counter("frames_received_total", "Complete frames received."),
			"frames_discarded":   counter("frames_discarded_total", "Frames dropped because of a bad length field."),
			"bytes_discarded":    counter("discarded_bytes_total", "Bytes dropped while resynchronizing."),
			"acks_sent":          counter("acks_sent_total", "Acknowledgements sent."),
			"datapoints_decoded": counter("datapoints_decoded_total", "Datapoint entries decoded and stored."),
			"unknown_datapoints": counter("unknown_datapoints_total", "Entries for ids missing from the catalogue."),
			"decode_errors":      counter("decode_errors_total", "Entries or payloads that failed to decode."),
			"bytes_sent":         counter("sent_bytes_total", "Bytes sent to the module."),
			"writes_sent":        counter("writes_sent_total", "Datapoint writes sent."),
			"writes_rejected":    counter("writes_rejected_total", "Datapoint writes refused by validation."),
			"read_all_requests":  counter("read_all_requests_total", "Read-all requests sent."),
			"write_errors":       counter("write_errors_total", "Frames that failed to send."),
		},
		connected: counter("connected", "1 while a module is attached."),
		retained:  counter("datapoints_retained", "Datapoints with a stored value."),
		uptime:    counter("uptime_seconds", "Seconds since the engine started."),
		latency: prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", "process_duration_seconds"),
			"Time spent processing one inbound chunk.", nil, nil),
		value: prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "datapoint", "value"),
			"Last numeric value reported for a datapoint.", labels, nil),
		updated: prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "datapoint", "updated_timestamp_seconds"),
			"Unix time of the last update of a datapoint.", labels, nil),
	}
}

// Describe implements prometheus.Collector
func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	ch <- c.connected
	ch <- c.retained
	ch <- c.uptime
	ch <- c.latency
	ch <- c.value
	ch <- c.updated
}

// Collect implements prometheus.Collector
func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.engine.Metrics().Snapshot()

	counters := map[string]int64{
		"connections":        snap.Connections,
		"disconnects":        snap.Disconnects,
		"rejected":           snap.Rejected,
		"bytes_received":     snap.BytesReceived,
		"frames_received":    snap.FramesReceived,
		"frames_discarded":   snap.FramesDiscarded,
		"bytes_discarded":    snap.BytesDiscarded,
		"acks_sent":          snap.AcksSent,
		"datapoints_decoded": snap.DatapointsDecoded,
		"unknown_datapoints": snap.UnknownDatapoints,
		"decode_errors":      snap.DecodeErrors,
		"bytes_sent":         snap.BytesSent,
		"writes_sent":        snap.WritesSent,
		"writes_rejected":    snap.WritesRejected,
		"read_all_requests":  snap.ReadAllRequests,
		"write_errors":       snap.WriteErrors,
	}
	for key, v := range counters {
		ch <- prometheus.MustNewConstMetric(c.counters[key], prometheus.CounterValue, float64(v))
	}

	connected := 0.0
	if snap.Connected {
		connected = 1
	}
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, connected)
	ch <- prometheus.MustNewConstMetric(c.retained, prometheus.GaugeValue, float64(snap.DatapointsRetained))
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, snap.Uptime.Seconds())
	ch <- c.latencyHistogram(snap.Latency)

	catalog := c.engine.Catalog()
	for _, sv := range c.engine.Store().Snapshot() {
		x, ok := sv.Value.Number()
		if !ok {
			continue
		}
		dp, known := catalog.Lookup(sv.ID)
		if !known {
			dp = ism8.Datapoint{ID: sv.ID, Device: "unknown", Type: ism8.TypeUnknown}
		}
		labels := []string{strconv.Itoa(int(sv.ID)), dp.Device, dp.Name, dp.Type.String()}
		ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, x, labels...)
		ch <- prometheus.MustNewConstMetric(c.updated, prometheus.GaugeValue,
			float64(sv.UpdatedAt.UnixNano())/float64(time.Second), labels...)
	}
}

// latencyHistogram converts the engine histogram to cumulative buckets
func (c *engineCollector) latencyHistogram(stats ism8.LatencyStats) prometheus.Metric {
	bounds := ism8.LatencyBounds()
	buckets := make(map[float64]uint64, len(bounds))
	var cumulative uint64
	for i, b := range bounds {
		if i < len(stats.Buckets) {
			cumulative += uint64(stats.Buckets[i])
		}
		buckets[b.Seconds()] = cumulative
	}
	return prometheus.MustNewConstHistogram(c.latency, uint64(stats.Count), stats.Sum.Seconds(), buckets)
}

// newMetricsHandler returns the /metrics handler for engine
func newMetricsHandler(engine *ism8.Engine) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		newEngineCollector(engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// serveMetrics runs the metrics endpoint until ctx is done
func serveMetrics(ctx context.Context, addr string, engine *ism8.Engine) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", newMetricsHandler(engine))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
