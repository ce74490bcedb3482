package picaprs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the tracker's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	packetsSent *prometheus.CounterVec
	failures    *prometheus.CounterVec
	frameBytes  prometheus.Histogram
	gpsFix      prometheus.Gauge
	gpsSats     prometheus.Gauge
}

func NewMetrics() *Metrics {
	var reg = prometheus.NewRegistry()
	var factory = promauto.With(reg)

	return &Metrics{
		Registry: reg,
		packetsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picaprs_packets_sent_total",
				Help: "Frames transmitted completely, by kind",
			},
			[]string{"kind"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picaprs_transmit_failures_total",
				Help: "Transmissions rejected or abandoned, by reason",
			},
			[]string{"reason"},
		),
		frameBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "picaprs_frame_bytes",
				Help:    "Size of transmitted frames including FCS",
				Buckets: prometheus.LinearBuckets(16, 16, 8),
			},
		),
		gpsFix: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "picaprs_gps_fix",
				Help: "GPS fix type: 0 none, 2 2D, 3 3D",
			},
		),
		gpsSats: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "picaprs_gps_satellites",
				Help: "Satellites used in the fix",
			},
		),
	}
}

func (m *Metrics) PacketSent(kind string, frameLen int) {
	if m == nil {
		return
	}

	m.packetsSent.WithLabelValues(kind).Inc()
	m.frameBytes.Observe(float64(frameLen))
}

func (m *Metrics) TransmitFailed(err error) {
	if m == nil {
		return
	}

	m.failures.WithLabelValues(failureReason(err)).Inc()
}

func (m *Metrics) GPSUpdate(gps *GPSData) {
	if m == nil {
		return
	}

	m.gpsFix.Set(float64(gps.Fix))
	m.gpsSats.Set(float64(gps.TrackedSats))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrFrameTooLarge):
		return "too_large"
	case errors.Is(err, ErrTimingViolation):
		return "timing"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}

	return "other"
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	var srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		var shutdownCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx) //nolint:errcheck,contextcheck
	}()

	logger.Info("Serving metrics", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
