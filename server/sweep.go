package server

import (
	"context"
	"log"
	"time"

	"beacon.live/metrics"
)

// StartSweepers launches the two background eviction loops and returns
// once they are running. They stop when ctx is cancelled. Sweeps are
// advisory cleanup - every read path re-checks expiry itself - so a
// failed pass is logged and the loop carries on.
func (s *Server) StartSweepers(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	go s.sweepLoop(ctx, interval, "sessions", s.sweepSessions)
	go s.sweepLoop(ctx, interval, "alerts", s.sweepAlerts)
}

func (s *Server) sweepLoop(ctx context.Context, interval time.Duration, name string, sweep func(now int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sweep] %s sweeper stopped", name)
			return
		case <-ticker.C:
			s.sweepOnce(name, sweep)
		}
	}
}

// sweepOnce runs a single pass. A panic must not kill the loop.
func (s *Server) sweepOnce(name string, sweep func(now int64)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[sweep] %s pass panicked: %v", name, r)
		}
	}()
	sweep(Now())
	metrics.SweepsTotal.WithLabelValues(name).Inc()
}

func (s *Server) sweepSessions(now int64) {
	removed := s.Presence.EvictExpired(now)
	for _, id := range removed {
		s.Index.Remove(id)
	}
	if len(removed) > 0 {
		log.Printf("[sweep] evicted %d stale sessions", len(removed))
		metrics.EvictionsTotal.WithLabelValues("sessions").Add(float64(len(removed)))
	}
	metrics.ActiveSessions.Set(float64(s.Presence.ActiveCount(now)))
}

func (s *Server) sweepAlerts(now int64) {
	removed := s.Alerts.EvictExpired(now)
	for _, id := range removed {
		s.Index.Remove(id)
	}
	if len(removed) > 0 {
		log.Printf("[sweep] evicted %d expired alerts", len(removed))
		metrics.EvictionsTotal.WithLabelValues("alerts").Add(float64(len(removed)))
	}
	metrics.LiveAlerts.Set(float64(s.Alerts.Len()))
}
