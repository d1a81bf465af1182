package server

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// AlertTTL is how long an alert marker stays live after creation.
const AlertTTL = 30 * time.Second

// Alert is a short-lived hazard marker dropped on the map.
type Alert struct {
	ID        string     `json:"id"`
	Position  [2]float64 `json:"position"`
	Type      string     `json:"type"`
	CreatorID string     `json:"creatorId"`
	CreatedAt int64      `json:"createdAt"`
	Link      string     `json:"link,omitempty"`
	Metadata  *Metadata  `json:"metadata,omitempty"`
}

// Metadata is unfurled open graph data for an alert's link.
type Metadata struct {
	Created     int64  `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Image       string `json:"image"`
	Url         string `json:"url"`
	Site        string `json:"site"`
}

// Alerts is the in-memory alert registry. It has its own lock so alert
// traffic never blocks presence traffic.
type Alerts struct {
	mtx      sync.Mutex
	alerts   map[string]*Alert
	metadata map[string]*Metadata
}

func NewAlerts() *Alerts {
	return &Alerts{
		alerts:   make(map[string]*Alert),
		metadata: make(map[string]*Metadata),
	}
}

// Create registers an alert marker. Re-creating an existing id is an
// update, not an error. A missing id gets a generated one.
func (a *Alerts) Create(alert *Alert, now int64) (*Alert, error) {
	if alert == nil || len(alert.Type) == 0 {
		return nil, ValidationError("alert type is required")
	}
	if len(alert.ID) == 0 {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt == 0 {
		alert.CreatedAt = now
	}

	ac := *alert
	a.mtx.Lock()
	a.alerts[ac.ID] = &ac
	a.mtx.Unlock()

	// unfurl any link out of band
	if len(ac.Link) > 0 {
		go a.unfurl(ac.ID, ac.Link)
	}

	return &ac, nil
}

// Remove deletes an alert. Absence is not an error - delete is
// idempotent.
func (a *Alerts) Remove(id string) {
	a.mtx.Lock()
	delete(a.alerts, id)
	delete(a.metadata, id)
	a.mtx.Unlock()
}

// ListValid returns copies of the alerts created within the TTL,
// regardless of whether the sweeper has evicted the rest yet.
func (a *Alerts) ListValid(now int64) []*Alert {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	var alerts []*Alert
	for _, al := range a.alerts {
		if now-al.CreatedAt >= AlertTTL.Milliseconds() {
			continue
		}
		ac := *al
		if g, ok := a.metadata[al.ID]; ok {
			ac.Metadata = g
		}
		alerts = append(alerts, &ac)
	}
	return alerts
}

// EvictExpired removes alerts past their TTL. Sweeper only.
func (a *Alerts) EvictExpired(now int64) []string {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	var removed []string
	for id, al := range a.alerts {
		if now-al.CreatedAt >= AlertTTL.Milliseconds() {
			delete(a.alerts, id)
			delete(a.metadata, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len reports how many alerts are held, expired or not.
func (a *Alerts) Len() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return len(a.alerts)
}

func (a *Alerts) unfurl(id, link string) {
	g := GetMetadata(link)
	if g == nil {
		return
	}
	a.mtx.Lock()
	// only attach if the alert still exists
	if _, ok := a.alerts[id]; ok {
		a.metadata[id] = g
	}
	a.mtx.Unlock()
}

// GetMetadata scrapes og/twitter card metadata for a url.
func GetMetadata(uri string) *Metadata {
	u, err := url.Parse(uri)
	if err != nil {
		return nil
	}

	d, err := goquery.NewDocument(u.String())
	if err != nil {
		return nil
	}

	g := &Metadata{
		Created: time.Now().UnixNano(),
	}

	for _, node := range d.Find("meta").Nodes {
		if len(node.Attr) < 2 {
			continue
		}

		p := strings.Split(node.Attr[0].Val, ":")
		if len(p) < 2 || (p[0] != "twitter" && p[0] != "og") {
			continue
		}

		switch p[1] {
		case "site_name":
			g.Site = node.Attr[1].Val
		case "site":
			if len(g.Site) == 0 {
				g.Site = node.Attr[1].Val
			}
		case "title":
			g.Title = node.Attr[1].Val
		case "description":
			g.Description = node.Attr[1].Val
		case "card", "type":
			g.Type = node.Attr[1].Val
		case "url":
			g.Url = node.Attr[1].Val
		case "image":
			if len(p) > 2 && p[2] == "src" {
				g.Image = node.Attr[1].Val
			} else if len(g.Image) == 0 {
				g.Image = node.Attr[1].Val
			}
		}
	}

	if len(g.Type) == 0 || len(g.Image) == 0 || len(g.Title) == 0 || len(g.Url) == 0 {
		return nil
	}

	return g
}
