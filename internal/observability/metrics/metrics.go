package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	CasesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_created_total",
			Help: "Total number of cases created.",
		},
		[]string{"service"},
	)

	CaseTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_transitions_total",
			Help: "Total number of case transition attempts.",
		},
		[]string{"service", "action", "result"},
	)

	NotificationsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notification delivery attempts.",
		},
		[]string{"service", "result"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)
	CasesCreatedTotal = CasesCreatedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	CaseTransitionsTotal = CaseTransitionsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	NotificationsDispatchedTotal = NotificationsDispatchedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		CasesCreatedTotal,
		CaseTransitionsTotal,
		NotificationsDispatchedTotal,
	)
}
