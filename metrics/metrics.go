// Package metrics exposes Prometheus instrumentation for the presence
// and alert stores.
package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_sessions_active",
		Help: "Real, tracking, non-expired sessions.",
	})
	LiveAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_alerts_live",
		Help: "Alert markers currently held in the registry.",
	})
	PingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_pings_total",
		Help: "Position reports accepted.",
	})
	DecoysGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_decoys_generated_total",
		Help: "Decoy sessions generated.",
	})
	SweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_sweeps_total",
		Help: "Background sweep passes completed.",
	}, []string{"store"})
	EvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_evictions_total",
		Help: "Records evicted by the sweepers.",
	}, []string{"store"})
	TranscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_transcriptions_total",
		Help: "Audio segments transcribed.",
	})
)

// Serve starts the metrics endpoint on its own port.
func Serve(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		log.Printf("[metrics] serving %s on %s", path, addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server stopped: %v", err)
		}
	}()
}
