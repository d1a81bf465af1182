package server

import (
	"errors"
	"testing"
)

func TestAlertCreateAndList(t *testing.T) {
	a := NewAlerts()

	created, err := a.Create(&Alert{
		ID:        "a1",
		Position:  [2]float64{51.5, -0.1},
		Type:      "hazard",
		CreatorID: "s1",
	}, 1000)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want 1000", created.CreatedAt)
	}

	alerts := a.ListValid(1000)
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Fatalf("Expected alert a1, got %v", alerts)
	}
}

func TestAlertCreateGeneratesID(t *testing.T) {
	a := NewAlerts()
	created, err := a.Create(&Alert{Type: "hazard"}, 1000)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(created.ID) == 0 {
		t.Error("Expected a generated id")
	}
}

func TestAlertCreateRequiresType(t *testing.T) {
	a := NewAlerts()
	_, err := a.Create(&Alert{ID: "a1"}, 1000)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestAlertCreateIsUpsert(t *testing.T) {
	a := NewAlerts()
	a.Create(&Alert{ID: "a1", Type: "hazard"}, 1000)
	a.Create(&Alert{ID: "a1", Type: "checkpoint"}, 2000)

	alerts := a.ListValid(2000)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != "checkpoint" {
		t.Errorf("Type = %s, want checkpoint", alerts[0].Type)
	}
}

func TestAlertListExcludesExpired(t *testing.T) {
	a := NewAlerts()
	a.Create(&Alert{ID: "old", Type: "hazard", CreatedAt: 1000}, 1000)
	a.Create(&Alert{ID: "fresh", Type: "hazard", CreatedAt: 20000}, 20000)

	// no sweep has run, the read path alone must hide the expired one
	alerts := a.ListValid(31000)
	if len(alerts) != 1 || alerts[0].ID != "fresh" {
		t.Fatalf("Expected only fresh alert, got %v", alerts)
	}
	if a.Len() != 2 {
		t.Error("Expired alert should still be physically present until swept")
	}
}

func TestAlertRemoveIdempotent(t *testing.T) {
	a := NewAlerts()
	a.Create(&Alert{ID: "a1", Type: "hazard"}, 1000)

	a.Remove("a1")
	a.Remove("a1")
	a.Remove("never-existed")

	if a.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", a.Len())
	}
}

func TestAlertEvictExpired(t *testing.T) {
	a := NewAlerts()
	a.Create(&Alert{ID: "old", Type: "hazard", CreatedAt: 0}, 0)
	a.Create(&Alert{ID: "fresh", Type: "hazard", CreatedAt: 20000}, 20000)

	removed := a.EvictExpired(31000)
	if len(removed) != 1 || removed[0] != "old" {
		t.Fatalf("Expected to evict old, got %v", removed)
	}
	if a.Len() != 1 {
		t.Errorf("Expected 1 alert left, got %d", a.Len())
	}
}
