package challenge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glyphcaptcha_challenges_issued",
		Help: "The total number of challenges issued",
	})

	validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyphcaptcha_validations",
		Help: "The number of validation attempts by outcome",
	}, []string{"result"})

	renderTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "glyphcaptcha_render_time",
		Help:    "The time taken to render a challenge image (milliseconds)",
		Buckets: prometheus.ExponentialBucketsRange(0.1, 1000, 16),
	})
)
