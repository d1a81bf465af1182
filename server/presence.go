package server

import (
	"sync"
	"time"
)

const (
	// SessionTTL is how long a session stays live without a ping.
	SessionTTL = 30 * time.Second

	// SweepInterval is how often the background sweepers run.
	SweepInterval = 10 * time.Second
)

// ValidationError marks a request missing required fields.
// Handlers surface it as a client error.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Session is one tracked client's reported location state.
// Decoy sessions are synthetic records generated for privacy
// obfuscation and carry the creator's session id.
type Session struct {
	ID         string      `json:"id"`
	Position   [2]float64  `json:"position"`
	LastUpdate int64       `json:"lastUpdate"`
	JoinedAt   string      `json:"joinedAt"`
	IP         string      `json:"ip,omitempty"`
	Alert      interface{} `json:"alert,omitempty"`
	Dummy      bool        `json:"isDummy"`
	CreatorID  string      `json:"creatorId,omitempty"`
	Tracking   bool        `json:"isTracking"`
}

// Ping is one position report from a client.
type Ping struct {
	SessionID string      `json:"sessionId"`
	Position  *[2]float64 `json:"position"`
	Timestamp int64       `json:"timestamp"`
	Tracking  bool        `json:"isTracking"`
	Alert     interface{} `json:"alert"`
	JoinedAt  string      `json:"joinedAt"`
	IP        string      `json:"-"`
}

// Presence is the in-memory session store. All access goes through
// the mutex, including the sweeper. Nothing is persisted - sessions
// are ephemeral and die with the process.
type Presence struct {
	mtx      sync.Mutex
	sessions map[string]*Session
	order    []string

	// single slot count cache, keyed by wall clock second
	countSecond int64
	countValue  int
}

func NewPresence() *Presence {
	return &Presence{
		sessions:    make(map[string]*Session),
		countSecond: -1,
	}
}

// Now returns the current time in epoch milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

func expired(lastUpdate, now int64) bool {
	return now-lastUpdate >= SessionTTL.Milliseconds()
}

// Upsert creates or updates the session for ping.SessionID and reports
// whether the session was new. JoinedAt and IP are set on creation only.
func (p *Presence) Upsert(ping *Ping, now int64) (bool, error) {
	if len(ping.SessionID) == 0 {
		return false, ValidationError("sessionId is required")
	}
	if ping.Position == nil {
		return false, ValidationError("position is required")
	}

	ts := ping.Timestamp
	if ts == 0 {
		ts = now
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	s, ok := p.sessions[ping.SessionID]
	if !ok {
		joined := ping.JoinedAt
		if len(joined) == 0 {
			joined = time.UnixMilli(now).UTC().Format(time.RFC3339)
		}
		p.sessions[ping.SessionID] = &Session{
			ID:         ping.SessionID,
			Position:   *ping.Position,
			LastUpdate: ts,
			JoinedAt:   joined,
			IP:         ping.IP,
			Alert:      ping.Alert,
			Tracking:   ping.Tracking,
		}
		p.order = append(p.order, ping.SessionID)
		return true, nil
	}

	// identity fields are fixed for the life of the record
	s.Position = *ping.Position
	s.LastUpdate = ts
	s.Alert = ping.Alert
	s.Tracking = ping.Tracking
	return false, nil
}

// ListActive returns copies of the non-expired real sessions in
// insertion order. Expired records are skipped even if the sweeper
// hasn't caught up with them yet.
func (p *Presence) ListActive(now int64) []*Session {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var sessions []*Session
	for _, id := range p.order {
		s, ok := p.sessions[id]
		if !ok || s.Dummy || expired(s.LastUpdate, now) {
			continue
		}
		sc := *s
		sessions = append(sessions, &sc)
	}
	return sessions
}

// DummiesFor returns copies of the decoy sessions owned by creator.
func (p *Presence) DummiesFor(creator string) []*Session {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var dummies []*Session
	for _, id := range p.order {
		s, ok := p.sessions[id]
		if !ok || !s.Dummy || s.CreatorID != creator {
			continue
		}
		sc := *s
		dummies = append(dummies, &sc)
	}
	return dummies
}

// ReplaceDummies removes every decoy owned by creator and inserts the
// given replacements in one critical section, so a concurrent
// regeneration for the same creator can never leave stale decoys
// behind. Returns the ids that were removed.
func (p *Presence) ReplaceDummies(creator string, decoys []*Session) []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	removed := p.removeDummiesLocked(creator)
	for _, d := range decoys {
		p.sessions[d.ID] = d
		p.order = append(p.order, d.ID)
	}
	return removed
}

// RemoveDummiesFor deletes all decoys owned by creator and returns
// their ids.
func (p *Presence) RemoveDummiesFor(creator string) []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.removeDummiesLocked(creator)
}

func (p *Presence) removeDummiesLocked(creator string) []string {
	var removed []string
	for id, s := range p.sessions {
		if s.Dummy && s.CreatorID == creator {
			delete(p.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		p.compactOrderLocked()
	}
	return removed
}

// EvictExpired removes every record, real or decoy, whose last update
// is older than the TTL. Called by the sweeper only - read paths never
// depend on it.
func (p *Presence) EvictExpired(now int64) []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var removed []string
	for id, s := range p.sessions {
		if expired(s.LastUpdate, now) {
			delete(p.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		p.compactOrderLocked()
	}
	return removed
}

func (p *Presence) compactOrderLocked() {
	order := p.order[:0]
	for _, id := range p.order {
		if _, ok := p.sessions[id]; ok {
			order = append(order, id)
		}
	}
	p.order = order
}

// ActiveCount returns how many real, tracking, non-expired sessions
// exist. The count is recomputed at most once per wall clock second;
// reads within the same second get the cached value, so a burst of
// upserts isn't reflected until the next second boundary.
func (p *Presence) ActiveCount(now int64) int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	second := now / 1000
	if second == p.countSecond {
		return p.countValue
	}

	count := 0
	for _, s := range p.sessions {
		if !s.Dummy && s.Tracking && !expired(s.LastUpdate, now) {
			count++
		}
	}
	p.countSecond = second
	p.countValue = count
	return count
}

// Len reports the total number of records held, decoys included.
func (p *Presence) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.sessions)
}
