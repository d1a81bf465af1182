// Package radio captures fixed-length segments from a public radio
// stream, runs them through transcription and stores the recognized
// text. It feeds the transcript store that the map's audio panel reads
// from; the presence core has no dependency on it.
package radio

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"beacon.live/data"
	"beacon.live/metrics"
	"beacon.live/speech"
)

const stationsURL = "https://de1.api.radio-browser.info/json/stations"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Listener records one stream and transcribes what it hears.
type Listener struct {
	Stream   string        // resolved stream url
	Duration time.Duration // length of each captured segment
	Speech   *speech.Client
	Store    *data.Store
	Dir      string // where segments are written before transcription
}

// FindStation resolves a stream url from the radio-browser directory
// for a country code.
func FindStation(countryCode string) (string, error) {
	url := fmt.Sprintf("%s?countrycode=%s&limit=10", stationsURL, countryCode)

	req, _ := http.NewRequest("GET", url, nil)
	req.Header.Set("User-Agent", "Beacon/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var stations []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stations); err != nil {
		return "", err
	}
	if len(stations) == 0 {
		return "", fmt.Errorf("no stations for country %s", countryCode)
	}

	s := stations[0]
	log.Printf("[radio] using station %q", s.Name)
	return s.URL, nil
}

// Run captures segments until ctx is cancelled. Capture or
// transcription failures are logged and the loop backs off briefly
// before trying again.
func (l *Listener) Run(ctx context.Context) {
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		log.Printf("[radio] cannot create %s: %v", l.Dir, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[radio] listener stopped")
			return
		default:
		}

		if err := l.captureOnce(ctx); err != nil {
			log.Printf("[radio] segment failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (l *Listener) captureOnce(ctx context.Context) error {
	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(l.Dir, fmt.Sprintf("segment_%s.wav", stamp))
	defer os.Remove(path)

	// copy the stream without re-encoding, bounded by the segment length
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", l.Stream,
		"-t", fmt.Sprintf("%d", int(l.Duration.Seconds())),
		"-c", "copy",
		path,
	)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	text, err := l.Speech.Transcribe(ctx, f, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	if len(text) == 0 {
		return nil
	}

	sentiment, err := l.Speech.Sentiment(ctx, text)
	if err != nil {
		// keep the text even if tagging fails
		log.Printf("[radio] sentiment failed: %v", err)
	}

	metrics.TranscriptionsTotal.Inc()
	return l.Store.SaveTranscript(&data.Transcript{
		Stream:    l.Stream,
		Text:      text,
		Sentiment: sentiment,
		CreatedAt: time.Now().UnixMilli(),
	})
}
