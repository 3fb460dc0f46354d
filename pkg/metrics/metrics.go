package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// OTPIssued counts one-time passcodes issued by purpose (verify|reset).
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_otp_issued_total",
			Help: "Total number of one-time passcodes issued",
		},
		[]string{"purpose"},
	)

	// OTPConfirmed counts OTP confirmations by purpose and result (success|mismatch|expired).
	OTPConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_otp_confirmed_total",
			Help: "Total number of OTP confirmation attempts",
		},
		[]string{"purpose", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhive_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
