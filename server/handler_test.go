package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestLocationHandler(t *testing.T) {
	s := New()

	rec := postJSON(t, s.LocationHandler, "/api/location", map[string]interface{}{
		"sessionId":  "s1",
		"position":   []float64{51.5, -0.1},
		"timestamp":  Now(),
		"isTracking": true,
	})
	if rec.Code != 200 {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success           bool `json:"success"`
		ActiveConnections int  `json:"activeConnections"`
		IsNewSession      bool `json:"isNewSession"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if !resp.Success || !resp.IsNewSession {
		t.Errorf("Expected success and isNewSession, got %+v", resp)
	}

	rec = postJSON(t, s.LocationHandler, "/api/location", map[string]interface{}{
		"sessionId": "s1",
		"position":  []float64{51.6, -0.2},
		"timestamp": Now(),
	})
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.IsNewSession {
		t.Error("Second ping should not be a new session")
	}
}

func TestLocationHandlerValidation(t *testing.T) {
	s := New()

	rec := postJSON(t, s.LocationHandler, "/api/location", map[string]interface{}{
		"sessionId": "s1",
	})
	if rec.Code != 400 {
		t.Errorf("Missing position: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest("POST", "/api/location", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	s.LocationHandler(rec2, req)
	if rec2.Code != 400 {
		t.Errorf("Malformed body: status = %d, want 400", rec2.Code)
	}
}

func TestSessionsHandlerWithDecoys(t *testing.T) {
	s := New()
	now := Now()
	s.Presence.Upsert(ping("s1", 0, 0, now, true), now)
	s.Presence.Upsert(ping("s2", 0, 2, now, true), now)

	req := httptest.NewRequest("GET", "/api/sessions?decoys=3&creator=s1", nil)
	rec := httptest.NewRecorder()
	s.SessionsHandler(rec, req)
	if rec.Code != 200 {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var views []*SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if len(views) != 5 {
		t.Fatalf("Expected 2 real + 3 decoys, got %d", len(views))
	}

	var real, dummies int
	for _, v := range views {
		if v.Dummy {
			dummies++
			if v.ActiveConnections != nil {
				t.Error("Decoys must not carry a connection count")
			}
			if v.CreatorID != "s1" {
				t.Errorf("Decoy creator = %s, want s1", v.CreatorID)
			}
		} else {
			real++
			if v.ActiveConnections == nil {
				t.Error("Real sessions must carry a connection count")
			}
		}
	}
	if real != 2 || dummies != 3 {
		t.Errorf("Got %d real and %d decoys, want 2 and 3", real, dummies)
	}
}

func TestSessionsHandlerNegativeDecoys(t *testing.T) {
	s := New()
	req := httptest.NewRequest("GET", "/api/sessions?decoys=-1&creator=s1", nil)
	rec := httptest.NewRecorder()
	s.SessionsHandler(rec, req)
	if rec.Code != 400 {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestConnectionsHandler(t *testing.T) {
	s := New()
	now := Now()
	s.Presence.Upsert(ping("s1", 0, 0, now, true), now)

	req := httptest.NewRequest("GET", "/api/connections", nil)
	rec := httptest.NewRecorder()
	s.ConnectionsHandler(rec, req)

	var resp struct {
		ActiveConnections int `json:"activeConnections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if resp.ActiveConnections != 1 {
		t.Errorf("activeConnections = %d, want 1", resp.ActiveConnections)
	}
}

func TestAlertsHandlerLifecycle(t *testing.T) {
	s := New()

	rec := postJSON(t, s.AlertsHandler, "/api/alerts", map[string]interface{}{
		"id":        "a1",
		"position":  []float64{51.5, -0.1},
		"type":      "hazard",
		"creatorId": "s1",
	})
	if rec.Code != 200 {
		t.Fatalf("Create status = %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/alerts", nil)
	rec2 := httptest.NewRecorder()
	s.AlertsHandler(rec2, req)

	var alerts []*Alert
	if err := json.Unmarshal(rec2.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Fatalf("Expected alert a1, got %v", alerts)
	}

	// delete twice, the second must be a harmless no-op
	for i := 0; i < 2; i++ {
		req = httptest.NewRequest("DELETE", "/api/alerts?id=a1", nil)
		rec3 := httptest.NewRecorder()
		s.AlertsHandler(rec3, req)
		if rec3.Code != 200 {
			t.Errorf("Delete %d status = %d, want 200", i, rec3.Code)
		}
	}

	rec4 := httptest.NewRecorder()
	s.AlertsHandler(rec4, httptest.NewRequest("GET", "/api/alerts", nil))
	alerts = nil
	json.Unmarshal(rec4.Body.Bytes(), &alerts)
	if len(alerts) != 0 {
		t.Errorf("Expected no alerts after delete, got %v", alerts)
	}
}

func TestAlertsHandlerMissingType(t *testing.T) {
	s := New()
	rec := postJSON(t, s.AlertsHandler, "/api/alerts", map[string]interface{}{
		"id": "a1",
	})
	if rec.Code != 400 {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestAlertsHandlerDeleteMissingID(t *testing.T) {
	s := New()
	req := httptest.NewRequest("DELETE", "/api/alerts", nil)
	rec := httptest.NewRecorder()
	s.AlertsHandler(rec, req)
	if rec.Code != 400 {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestNearbyHandler(t *testing.T) {
	s := New()

	rec := postJSON(t, s.LocationHandler, "/api/location", map[string]interface{}{
		"sessionId": "near",
		"position":  []float64{51.5, -0.1},
		"timestamp": Now(),
	})
	if rec.Code != 200 {
		t.Fatalf("Setup ping failed: %s", rec.Body.String())
	}
	postJSON(t, s.LocationHandler, "/api/location", map[string]interface{}{
		"sessionId": "far",
		"position":  []float64{52.5, 1.0},
		"timestamp": Now(),
	})

	req := httptest.NewRequest("GET", "/api/nearby?lat=51.5&lon=-0.1&radius=1000", nil)
	rec2 := httptest.NewRecorder()
	s.NearbyHandler(rec2, req)
	if rec2.Code != 200 {
		t.Fatalf("Status = %d: %s", rec2.Code, rec2.Body.String())
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(rec2.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if len(entries) != 1 || entries[0]["id"] != "near" {
		t.Errorf("Expected only the nearby session, got %v", entries)
	}
}

func TestNearbyHandlerRequiresCoords(t *testing.T) {
	s := New()
	req := httptest.NewRequest("GET", "/api/nearby?radius=100", nil)
	rec := httptest.NewRecorder()
	s.NearbyHandler(rec, req)
	if rec.Code != 400 {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestWithCors(t *testing.T) {
	called := false
	h := WithCors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/api/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if called {
		t.Error("Preflight should not reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}

	req = httptest.NewRequest("GET", "/api/sessions", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Error("GET should reach the handler")
	}
}

func TestRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/location", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	if got := remoteAddr(req); got != "10.1.2.3" {
		t.Errorf("remoteAddr = %q, want 10.1.2.3", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := remoteAddr(req); got != "203.0.113.9" {
		t.Errorf("remoteAddr = %q, want forwarded address", got)
	}
}
