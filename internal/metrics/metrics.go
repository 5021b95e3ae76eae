package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Anomaly labels for known legacy data issues.
const (
	AnomalyUnknownDirection   = "tap_unknown_direction"
	AnomalyDanglingReturnLink = "dangling_return_link"
	AnomalyMalformedOwner     = "malformed_owner_class"
)

// Metrics provides observability for movement classification and the booking
// views. A nil *Metrics is valid and records nothing.
type Metrics struct {
	MovementsClassified *prometheus.CounterVec
	DataAnomalies       *prometheus.CounterVec
	MovementsRecorded   *prometheus.CounterVec
	AggregateDuration   prometheus.Histogram
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MovementsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "movements_classified_total",
			Help: "External movements classified, by resulting kind",
		}, []string{"kind"}),
		DataAnomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "movement_data_anomalies_total",
			Help: "Known legacy data anomalies tolerated while reading movements",
		}, []string{"anomaly"}),
		MovementsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "movements_recorded_total",
			Help: "External movements written, by movement type",
		}, []string{"movement_type"}),
		AggregateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_temporary_absences_duration_seconds",
			Help:    "Duration of building the temporary absence view of a booking",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncClassified(kind string) {
	if m == nil {
		return
	}
	m.MovementsClassified.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncAnomaly(anomaly string) {
	if m == nil {
		return
	}
	m.DataAnomalies.WithLabelValues(anomaly).Inc()
}

func (m *Metrics) IncRecorded(movementType string) {
	if m == nil {
		return
	}
	m.MovementsRecorded.WithLabelValues(movementType).Inc()
}

// ObserveAggregate records the duration of a booking view build.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAggregate(start time.Time) {
	if m == nil {
		return
	}
	m.AggregateDuration.Observe(time.Since(start).Seconds())
}
