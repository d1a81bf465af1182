package server

import (
	"net/http"
	"strconv"

	"beacon.live/data"
	"beacon.live/metrics"
	"beacon.live/speech"
)

// Transcriber serves the audio endpoints. The presence core doesn't
// depend on any of this - it's the other half of the app, kept behind
// its own handlers.
type Transcriber struct {
	Speech *speech.Client
	Store  *data.Store
}

// TranscribeHandler handles POST /api/transcribe. Expects form-data
// with an "audio_file" field and an optional "stream" name the text is
// filed under.
func (t *Transcriber) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	if !t.Speech.Enabled() {
		http.Error(w, "Transcription not configured", 503)
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "No audio file found", 400)
		return
	}
	defer file.Close()

	stream := r.FormValue("stream")
	if len(stream) == 0 {
		stream = "default"
	}

	text, err := t.Speech.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		http.Error(w, "Transcription failed", 500)
		return
	}

	sentiment, _ := t.Speech.Sentiment(r.Context(), text)

	metrics.TranscriptionsTotal.Inc()
	transcript := &data.Transcript{
		Stream:    stream,
		Text:      text,
		Sentiment: sentiment,
		CreatedAt: Now(),
	}
	if err := t.Store.SaveTranscript(transcript); err != nil {
		http.Error(w, "Cannot store transcript", 500)
		return
	}

	writeJSON(w, map[string]interface{}{
		"transcription": text,
		"sentiment":     sentiment,
	})
}

// TranscriptsHandler handles GET /api/transcripts?stream=&since=&limit=.
func (t *Transcriber) TranscriptsHandler(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	stream := r.Form.Get("stream")
	if len(stream) == 0 {
		stream = "default"
	}

	since, err := strconv.ParseInt(r.Form.Get("since"), 10, 64)
	if err != nil {
		since = 0
	}
	limit, err := strconv.Atoi(r.Form.Get("limit"))
	if err != nil {
		limit = 100
	}

	transcripts, err := t.Store.Transcripts(stream, since, limit)
	if err != nil {
		http.Error(w, "Cannot read transcripts", 500)
		return
	}
	if transcripts == nil {
		transcripts = []*data.Transcript{}
	}
	writeJSON(w, transcripts)
}
