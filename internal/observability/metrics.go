package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/uorlink/internal/logging"
	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	framesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uorlink",
			Subsystem: "reader",
			Name:      "frames_total",
			Help:      "Frames accepted by the stream reader.",
		},
		[]string{"message"},
	)
	frameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uorlink",
			Subsystem: "reader",
			Name:      "frame_errors_total",
			Help:      "Frames rejected by the stream reader.",
		},
		[]string{"reason"},
	)
	droppedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "uorlink",
			Subsystem: "reader",
			Name:      "dropped_bytes_total",
			Help:      "Bytes skipped while resynchronising on a start marker.",
		},
	)
	framesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uorlink",
			Subsystem: "publisher",
			Name:      "frames_total",
			Help:      "Paged telemetry frames written.",
		},
		[]string{"kind"},
	)
	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "uorlink",
			Subsystem: "publisher",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent packing and writing one publish cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesRead, frameErrors, droppedBytes, framesPublished, cycleDuration)
	})
}

func RecordFrame(message string) {
	RegisterMetrics()
	framesRead.WithLabelValues(message).Inc()
}

// RecordFrameError counts a rejected frame under a short reason label.
func RecordFrameError(err error) {
	RegisterMetrics()
	frameErrors.WithLabelValues(ErrorReason(err)).Inc()
}

func RecordDroppedBytes(n uint64) {
	RegisterMetrics()
	droppedBytes.Add(float64(n))
}

func RecordPublished(kind string, frames int, duration time.Duration) {
	RegisterMetrics()
	framesPublished.WithLabelValues(kind).Add(float64(frames))
	cycleDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ErrorReason maps reader errors onto a fixed label set.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, frame.ErrBadChecksum):
		return "checksum"
	case errors.Is(err, frame.ErrUnknownMessage):
		return "unknown"
	case errors.Is(err, frame.ErrSignedFrame):
		return "signed"
	case errors.Is(err, frame.ErrIncompatFlags):
		return "incompat"
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return "oversize"
	case errors.Is(err, frame.ErrTruncated):
		return "truncated"
	}
	return "other"
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	RegisterMetrics()
	lg := logging.Component("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", addr).Msg("metrics listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
