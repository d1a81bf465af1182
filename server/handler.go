package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"beacon.live/metrics"
	"beacon.live/spatial"
)

// SessionView is a session as returned to clients. Real sessions carry
// the current active-connection count, decoys don't.
type SessionView struct {
	Session
	ActiveConnections *int `json:"activeConnections,omitempty"`
}

// LocationHandler handles POST /api/location - one position ping.
func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request) {
	var ping Ping
	if err := json.NewDecoder(r.Body).Decode(&ping); err != nil {
		http.Error(w, "Invalid request body", 400)
		return
	}
	ping.IP = remoteAddr(r)

	now := Now()
	isNew, err := s.Presence.Upsert(&ping, now)
	if err != nil {
		writeError(w, err)
		return
	}

	s.Index.Upsert(&spatial.Entry{
		ID:      ping.SessionID,
		Kind:    spatial.KindSession,
		Lat:     ping.Position[0],
		Lon:     ping.Position[1],
		Expires: now + SessionTTL.Milliseconds(),
	})

	metrics.PingsTotal.Inc()
	if isNew {
		s.Broadcast(NewEvent(EventSession, map[string]interface{}{"id": ping.SessionID}))
	}

	writeJSON(w, map[string]interface{}{
		"success":           true,
		"activeConnections": s.Presence.ActiveCount(now),
		"isNewSession":      isNew,
	})
}

// SessionsHandler handles GET /api/sessions. With decoys=N and a
// creator id the caller's decoys are regenerated before listing, so
// decoy positions are fresh on every poll.
func (s *Server) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	creator := r.Form.Get("creator")
	decoys, err := strconv.Atoi(r.Form.Get("decoys"))
	if err != nil {
		decoys = 0
	}

	now := Now()

	var dummies []*Session
	if len(creator) > 0 {
		generated, removed, err := s.Presence.RegenerateDecoys(creator, decoys, s.Decoys, now)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, id := range removed {
			s.Index.Remove(id)
		}
		for _, d := range generated {
			s.Index.Upsert(&spatial.Entry{
				ID:      d.ID,
				Kind:    spatial.KindSession,
				Lat:     d.Position[0],
				Lon:     d.Position[1],
				Dummy:   true,
				Expires: now + SessionTTL.Milliseconds(),
			})
		}
		metrics.DecoysGenerated.Add(float64(len(generated)))
		dummies = generated
	}

	count := s.Presence.ActiveCount(now)

	views := []*SessionView{}
	for _, sess := range s.Presence.ListActive(now) {
		c := count
		views = append(views, &SessionView{Session: *sess, ActiveConnections: &c})
	}
	for _, d := range dummies {
		views = append(views, &SessionView{Session: *d})
	}

	writeJSON(w, views)
}

// ConnectionsHandler handles GET /api/connections.
func (s *Server) ConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"activeConnections": s.Presence.ActiveCount(Now()),
	})
}

// AlertsHandler handles /api/alerts - create, delete and list.
func (s *Server) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		var alert Alert
		if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
			http.Error(w, "Invalid request body", 400)
			return
		}

		now := Now()
		created, err := s.Alerts.Create(&alert, now)
		if err != nil {
			writeError(w, err)
			return
		}

		s.Index.Upsert(&spatial.Entry{
			ID:      created.ID,
			Kind:    spatial.KindAlert,
			Lat:     created.Position[0],
			Lon:     created.Position[1],
			Expires: created.CreatedAt + AlertTTL.Milliseconds(),
		})
		s.Broadcast(NewEvent(EventAlert, created))

		writeJSON(w, map[string]interface{}{"success": true, "alert": created})

	case "DELETE":
		r.ParseForm()
		id := r.Form.Get("id")
		if len(id) == 0 {
			http.Error(w, "Missing alert id", 400)
			return
		}
		s.Alerts.Remove(id)
		s.Index.Remove(id)
		s.Broadcast(NewEvent(EventAlertRemoved, map[string]interface{}{"id": id}))
		writeJSON(w, map[string]interface{}{"success": true})

	case "GET":
		alerts := s.Alerts.ListValid(Now())
		if alerts == nil {
			alerts = []*Alert{}
		}
		writeJSON(w, alerts)

	default:
		http.Error(w, "unsupported method "+r.Method, 400)
	}
}

// NearbyHandler handles GET /api/nearby - radius query over the
// spatial index.
func (s *Server) NearbyHandler(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	lat, err := strconv.ParseFloat(r.Form.Get("lat"), 64)
	if err != nil {
		http.Error(w, "Missing or invalid lat", 400)
		return
	}
	lon, err := strconv.ParseFloat(r.Form.Get("lon"), 64)
	if err != nil {
		http.Error(w, "Missing or invalid lon", 400)
		return
	}

	radius, err := strconv.ParseFloat(r.Form.Get("radius"), 64)
	if err != nil || radius <= 0 {
		radius = 1000
	}
	limit, err := strconv.Atoi(r.Form.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	kind := spatial.Kind(r.Form.Get("kind"))

	entries := s.Index.Near(lat, lon, radius, kind, limit, Now())
	if entries == nil {
		entries = []*spatial.Entry{}
	}
	writeJSON(w, entries)
}

// EventsHandler handles GET /events - the live feed. Serves a
// websocket when the client asks for an upgrade, SSE otherwise.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	o := NewObserver()

	defer func() {
		close(o.Kill)
	}()

	s.Observe(o)

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if IsWebSocket(r) {
		ServeWebSocket(w, r, o)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case e := <-o.Events:
			b, _ := json.Marshal(e)
			w.Write([]byte("data: "))
			w.Write(b)
			w.Write([]byte("\n\n"))
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func writeError(w http.ResponseWriter, err error) {
	var ve ValidationError
	if errors.As(err, &ve) {
		http.Error(w, ve.Error(), 400)
		return
	}
	http.Error(w, err.Error(), 500)
}

// remoteAddr prefers the proxy-forwarded address, falling back to the
// connection's.
func remoteAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); len(fwd) > 0 {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WithCors allows cross origin requests, for local dev with the map
// frontend on another port.
func WithCors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			return
		}

		h.ServeHTTP(w, r)
	})
}
