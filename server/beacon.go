// Package server implements the Beacon presence server.
//
// Mobile clients ping their location every few seconds; everyone polls
// for the live set of participants plus any active hazard alerts. All
// state is in-memory and time-bounded: a session dies 30s after its
// last ping, an alert 30s after creation. Clients polling for sessions
// can ask for decoy positions to be scattered around the real cluster
// so the true set of participants can't be read off the map.
package server

import (
	"sync"
	"time"

	"beacon.live/spatial"
	"github.com/google/uuid"
)

const (
	EventSession      = "session"
	EventAlert        = "alert"
	EventAlertRemoved = "alert.removed"
)

// Event is pushed to live observers when presence or alert state
// changes.
type Event struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Created int64       `json:"created"`
}

// Observer is one connected event feed, websocket or SSE.
type Observer struct {
	ID     string
	Events chan *Event
	Kill   chan bool
}

func NewObserver() *Observer {
	return &Observer{
		ID:     uuid.New().String(),
		Events: make(chan *Event, 16),
		Kill:   make(chan bool),
	}
}

// Server owns the presence store, the alert registry and the spatial
// index, and fans events out to observers. One instance per process,
// constructed by the entry point and injected into handlers.
type Server struct {
	Created  int64
	Presence *Presence
	Alerts   *Alerts
	Index    *spatial.Index
	Decoys   DecoyConfig

	mtx       sync.RWMutex
	observers map[string]*Observer
}

func New() *Server {
	return &Server{
		Created:   time.Now().UnixNano(),
		Presence:  NewPresence(),
		Alerts:    NewAlerts(),
		Index:     spatial.New(),
		Decoys:    DefaultDecoyConfig,
		observers: make(map[string]*Observer),
	}
}

func NewEvent(kind string, data interface{}) *Event {
	return &Event{
		ID:      uuid.New().String(),
		Type:    kind,
		Data:    data,
		Created: time.Now().UnixNano(),
	}
}

// Observe registers an observer and removes it once its Kill channel
// closes.
func (s *Server) Observe(o *Observer) {
	s.mtx.Lock()
	s.observers[o.ID] = o
	s.mtx.Unlock()

	go func() {
		<-o.Kill
		s.mtx.Lock()
		delete(s.observers, o.ID)
		s.mtx.Unlock()
	}()
}

// Broadcast sends an event to every observer. Slow observers miss
// events rather than block the sender.
func (s *Server) Broadcast(e *Event) {
	s.mtx.RLock()
	observers := make([]*Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mtx.RUnlock()

	for _, o := range observers {
		select {
		case o.Events <- e:
		default:
		}
	}
}

// Observers reports how many event feeds are connected.
func (s *Server) Observers() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.observers)
}
