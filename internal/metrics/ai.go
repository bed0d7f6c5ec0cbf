package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outcome 取值：ok / rate_limited / upstream_error。
var aiImproveTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "airesume",
		Subsystem: "ai",
		Name:      "improve_requests_total",
		Help:      "AI 文本润色请求总数。",
	},
	[]string{"field", "outcome"},
)

// ObserveAIImprove 记录一次润色请求的结果。
func ObserveAIImprove(field, outcome string) {
	aiImproveTotal.WithLabelValues(field, outcome).Inc()
}
