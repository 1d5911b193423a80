package metrics

import (
	"net/http"

	"github.com/ErlanBelekov/sso-handoff/internal/health"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Token lifecycle

	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "tokens_issued_total",
		Help:      "Handoff tokens issued after a successful login.",
	})

	RedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "redemptions_total",
		Help:      "Token redemption attempts, by outcome (valid or failure reason).",
	}, []string{"outcome"})

	TokensLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sso",
		Name:      "tokens_live",
		Help:      "Token records currently held in memory.",
	})

	// Sweeper

	SweepEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "sweep_evicted_total",
		Help:      "Expired token records removed by the sweeper.",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sso",
		Name:      "sweep_duration_seconds",
		Help:      "Time taken for one sweep cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// Login flow

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "logins_total",
		Help:      "Login form submissions, by outcome.",
	}, []string{"outcome"})

	RedirectsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "redirects_rejected_total",
		Help:      "Return URLs refused by the redirect allow-list.",
	})

	// Client side

	PreAuthTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "client_preauth_total",
		Help:      "Pre-authentication attempts seen by a client app, by outcome.",
	}, []string{"outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sso",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sso",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		TokensIssuedTotal,
		RedemptionsTotal,
		TokensLive,
		SweepEvictedTotal,
		SweepDuration,
		LoginsTotal,
		RedirectsRejectedTotal,
		PreAuthTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus liveness and readiness probes.
func NewServer(addr string, checker *health.Checker) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})
	r.GET("/readyz", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})
	return &http.Server{Addr: addr, Handler: r}
}
