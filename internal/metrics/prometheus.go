package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice message service
type Metrics struct {
	// Upload metrics
	UploadsReceived  prometheus.Counter
	UploadsStored    prometheus.Counter
	UploadsRejected  prometheus.Counter
	UploadSize       prometheus.Histogram

	// Transcode metrics
	TranscodeSuccesses prometheus.Counter
	TranscodeFallbacks prometheus.Counter
	TranscodeDuration  prometheus.Histogram

	// Duration probe metrics
	DurationProbes     prometheus.Counter
	DurationUnresolved prometheus.Counter

	// Recording session metrics
	ActiveRecordings  prometheus.Gauge
	RecordingsStarted prometheus.Counter
	RecordingsSent    prometheus.Counter
	RecordingDuration prometheus.Histogram

	// Notification metrics
	EventsBroadcast  prometheus.Counter
	ConnectedClients prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Upload metrics
		UploadsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_uploads_received_total",
			Help: "Total number of media uploads received",
		}),
		UploadsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_uploads_stored_total",
			Help: "Total number of media uploads successfully stored",
		}),
		UploadsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_uploads_rejected_total",
			Help: "Total number of media uploads rejected",
		}),
		UploadSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_upload_size_bytes",
			Help:    "Size of uploaded media files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~16MB
		}),

		// Transcode metrics
		TranscodeSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_transcode_successes_total",
			Help: "Total number of audio uploads transcoded to the universal container",
		}),
		TranscodeFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_transcode_fallbacks_total",
			Help: "Total number of audio uploads stored in their original format",
		}),
		TranscodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_transcode_duration_seconds",
			Help:    "Duration of server-side transcode runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Duration probe metrics
		DurationProbes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_duration_probes_total",
			Help: "Total number of audio duration probes",
		}),
		DurationUnresolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_duration_unresolved_total",
			Help: "Total number of probes that could not determine a duration",
		}),

		// Recording session metrics
		ActiveRecordings: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voice_active_recordings",
			Help: "Current number of active recording sessions",
		}),
		RecordingsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_recordings_started_total",
			Help: "Total number of recording sessions started",
		}),
		RecordingsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_recordings_sent_total",
			Help: "Total number of recordings sent as messages",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_recording_duration_seconds",
			Help:    "Duration of completed recordings in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9), // 1s to ~8 minutes
		}),

		// Notification metrics
		EventsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voice_events_broadcast_total",
			Help: "Total number of realtime events broadcast to chat rooms",
		}),
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voice_connected_clients",
			Help: "Current number of connected websocket clients",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordUploadReceived increments the uploads received counter
func (m *Metrics) RecordUploadReceived(sizeBytes int64) {
	m.UploadsReceived.Inc()
	m.UploadSize.Observe(float64(sizeBytes))
}

// RecordUploadStored increments the uploads stored counter
func (m *Metrics) RecordUploadStored() {
	m.UploadsStored.Inc()
}

// RecordUploadRejected increments the uploads rejected counter
func (m *Metrics) RecordUploadRejected() {
	m.UploadsRejected.Inc()
}

// RecordTranscodeSuccess records a successful transcode
func (m *Metrics) RecordTranscodeSuccess(durationSeconds float64) {
	m.TranscodeSuccesses.Inc()
	m.TranscodeDuration.Observe(durationSeconds)
}

// RecordTranscodeFallback records an upload kept in its original format
func (m *Metrics) RecordTranscodeFallback(durationSeconds float64) {
	m.TranscodeFallbacks.Inc()
	m.TranscodeDuration.Observe(durationSeconds)
}

// RecordDurationProbe records a duration probe and whether it resolved
func (m *Metrics) RecordDurationProbe(resolved bool) {
	m.DurationProbes.Inc()
	if !resolved {
		m.DurationUnresolved.Inc()
	}
}

// SetActiveRecordings sets the current number of recording sessions
func (m *Metrics) SetActiveRecordings(count int) {
	m.ActiveRecordings.Set(float64(count))
}

// RecordRecordingStarted increments the recordings started counter
func (m *Metrics) RecordRecordingStarted() {
	m.RecordingsStarted.Inc()
}

// RecordRecordingSent records a sent recording and its duration
func (m *Metrics) RecordRecordingSent(durationSeconds float64) {
	m.RecordingsSent.Inc()
	m.RecordingDuration.Observe(durationSeconds)
}

// RecordEventBroadcast increments the events broadcast counter
func (m *Metrics) RecordEventBroadcast() {
	m.EventsBroadcast.Inc()
}

// SetConnectedClients sets the current number of websocket clients
func (m *Metrics) SetConnectedClients(count int) {
	m.ConnectedClients.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
