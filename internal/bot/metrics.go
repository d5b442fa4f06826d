package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's Prometheus metrics, served on /metrics by the
// HTTP server.
type Metrics struct {
	MessagesProcessed prometheus.Counter
	RentalsOpened     prometheus.Counter
	RentalsClosed     prometheus.Counter
	RentalsCancelled  prometheus.Counter
	ReviewsRecorded   prometheus.Counter
	ErrorsTotal       prometheus.Counter
	HandlerDuration   prometheus.Histogram
}

// NewMetrics registers and returns the bot metrics. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentbot_messages_processed_total",
			Help: "Total number of processed chat messages",
		}),

		RentalsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentbot_rentals_opened_total",
			Help: "Total number of rentals opened",
		}),

		RentalsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentbot_rentals_closed_total",
			Help: "Total number of rentals closed",
		}),

		RentalsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentbot_rentals_cancelled_total",
			Help: "Total number of rentals cancelled mid-flow",
		}),

		ReviewsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentbot_reviews_recorded_total",
			Help: "Total number of reviews persisted",
		}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentbot_errors_total",
			Help: "Total number of handler errors",
		}),

		HandlerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentbot_handler_duration_seconds",
			Help:    "Time spent handling one update",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// The inc helpers tolerate a nil receiver so the state machine can run
// without metrics in tests.

func (m *Metrics) incMessages() {
	if m != nil {
		m.MessagesProcessed.Inc()
	}
}

func (m *Metrics) incOpened() {
	if m != nil {
		m.RentalsOpened.Inc()
	}
}

func (m *Metrics) incClosed() {
	if m != nil {
		m.RentalsClosed.Inc()
	}
}

func (m *Metrics) incCancelled() {
	if m != nil {
		m.RentalsCancelled.Inc()
	}
}

func (m *Metrics) incReviews() {
	if m != nil {
		m.ReviewsRecorded.Inc()
	}
}

func (m *Metrics) incErrors() {
	if m != nil {
		m.ErrorsTotal.Inc()
	}
}

func (m *Metrics) observe(seconds float64) {
	if m != nil {
		m.HandlerDuration.Observe(seconds)
	}
}
