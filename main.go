package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beacon.live/config"
	"beacon.live/data"
	"beacon.live/metrics"
	"beacon.live/radio"
	"beacon.live/server"
	"beacon.live/speech"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := data.Open(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("data: %v", err)
	}
	defer store.Close()

	srv := server.New()
	srv.Decoys = server.DecoyConfig{
		MinDistance: cfg.Decoys.MinDistance,
		MaxDistance: cfg.Decoys.MaxDistance,
	}
	server.FallbackCenter = [2]float64{cfg.Decoys.FallbackLat, cfg.Decoys.FallbackLon}

	srv.StartSweepers(ctx, time.Duration(cfg.Sweep.Interval)*time.Second)

	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	sp := speech.New(cfg.Speech.APIKey, cfg.Speech.BaseURL, cfg.Speech.Model)
	transcriber := &server.Transcriber{Speech: sp, Store: store}
	auth := server.NewAuth(store)

	if cfg.Radio.Enabled {
		stream := cfg.Radio.Stream
		if len(stream) == 0 {
			stream, err = radio.FindStation(cfg.Radio.CountryCode)
			if err != nil {
				log.Printf("[radio] no station: %v", err)
			}
		}
		if len(stream) > 0 && sp.Enabled() {
			listener := &radio.Listener{
				Stream:   stream,
				Duration: time.Duration(cfg.Radio.Duration) * time.Second,
				Speech:   sp,
				Store:    store,
				Dir:      cfg.Data.Dir + "/audio_store",
			}
			go listener.Run(ctx)
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/location", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "POST":
			srv.LocationHandler(w, r)
		default:
			http.Error(w, "unsupported method "+r.Method, 400)
		}
	})
	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET":
			srv.SessionsHandler(w, r)
		default:
			http.Error(w, "unsupported method "+r.Method, 400)
		}
	})
	mux.HandleFunc("/api/connections", srv.ConnectionsHandler)
	mux.HandleFunc("/api/alerts", srv.AlertsHandler)
	mux.HandleFunc("/api/nearby", srv.NearbyHandler)
	mux.HandleFunc("/events", srv.EventsHandler)

	mux.HandleFunc("/api/transcribe", transcriber.TranscribeHandler)
	mux.HandleFunc("/api/transcripts", transcriber.TranscriptsHandler)

	mux.HandleFunc("/auth/signup", auth.SignupHandler)
	mux.HandleFunc("/auth/login", auth.LoginHandler)
	mux.HandleFunc("/auth/logout", auth.LogoutHandler)
	mux.HandleFunc("/auth/check", auth.CheckHandler)

	// no write timeout - /events holds the response open indefinitely
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     server.WithCors(mux),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}

	go func() {
		log.Printf("[server] listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[server] shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}
