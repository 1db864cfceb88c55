package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesSent counts chat messages committed by the pipeline.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moyeo_chat_messages_sent_total",
		Help: "Number of chat messages persisted and broadcast.",
	})

	// NotificationsCreated counts stored notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moyeo_notifications_created_total",
		Help: "Number of notifications persisted, by type.",
	}, []string{"type"})

	// LiveConnections tracks currently registered websocket connections.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moyeo_live_connections",
		Help: "Currently open live connections.",
	})
)

// Serve exposes /metrics on its own port. Runs until the process exits.
func Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("Metrics listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}
