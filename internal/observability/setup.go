package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Audit is the structured stream of committed moderation decisions.
	Audit *zap.Logger

	infractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infractions_total",
			Help: "Total number of recorded infractions",
		},
		[]string{"kind", "origin"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Total number of automatic warning escalations",
		},
		[]string{"action"},
	)

	muteExpirationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mute_expirations_total",
			Help: "Total number of processed mute expiries",
		},
		[]string{"result"},
	)

	appealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appeals_total",
			Help: "Total number of appeal transitions",
		},
		[]string{"status"},
	)

	commandProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_processing_duration_seconds",
			Help:    "Time spent processing bot commands",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init(ctx context.Context) error {
	var err error
	Audit, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(infractionsTotal)
	prometheus.MustRegister(escalationsTotal)
	prometheus.MustRegister(muteExpirationsTotal)
	prometheus.MustRegister(appealsTotal)
	prometheus.MustRegister(commandProcessingDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":2112", nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordInfraction counts a newly persisted infraction. Origin is either
// "manual" or "escalation".
func RecordInfraction(kind string, origin string) {
	infractionsTotal.WithLabelValues(kind, origin).Inc()
}

func RecordEscalation(action string) {
	escalationsTotal.WithLabelValues(action).Inc()
}

// RecordMuteExpiration counts a mute expiry outcome: "expired",
// "recovered" or "failed".
func RecordMuteExpiration(result string) {
	muteExpirationsTotal.WithLabelValues(result).Inc()
}

func RecordAppeal(status string) {
	appealsTotal.WithLabelValues(status).Inc()
}

// StartCommandProcessing returns a function that records the elapsed
// command duration under the final status label.
func StartCommandProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		commandProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}

// AuditEvent writes one committed moderation decision to the audit stream.
func AuditEvent(event string, fields ...zap.Field) {
	if Audit == nil {
		return
	}
	Audit.Info(event, fields...)
}
