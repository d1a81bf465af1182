package server

import (
	"fmt"
)

// FallbackCenter is where decoys cluster when no real session exists
// to compute a centroid from. Matches the map's default viewport.
var FallbackCenter = [2]float64{40.7128, -74.0060}

// DecoyConfig bounds how far decoys land from the cluster center.
type DecoyConfig struct {
	MinDistance float64 // meters
	MaxDistance float64 // meters
}

// DefaultDecoyConfig spreads decoys between 50m and 500m out.
var DefaultDecoyConfig = DecoyConfig{MinDistance: 50, MaxDistance: 500}

// Centroid returns the arithmetic mean position of the given sessions,
// or the fallback center when there are none.
func Centroid(sessions []*Session) [2]float64 {
	if len(sessions) == 0 {
		return FallbackCenter
	}
	var lat, lon float64
	for _, s := range sessions {
		lat += s.Position[0]
		lon += s.Position[1]
	}
	n := float64(len(sessions))
	return [2]float64{lat / n, lon / n}
}

// RegenerateDecoys replaces creator's decoys with count freshly sampled
// ones clustered around the centroid of the real active population.
// Decoys are regenerated on every poll so their positions never go
// stale relative to the real cluster. count=0 just clears.
// Returns the new decoys and the ids of the ones they replaced.
func (p *Presence) RegenerateDecoys(creator string, count int, cfg DecoyConfig, now int64) ([]*Session, []string, error) {
	if count < 0 {
		return nil, nil, ValidationError("decoy count must not be negative")
	}
	if count == 0 {
		return nil, p.RemoveDummiesFor(creator), nil
	}

	center := Centroid(p.ListActive(now))
	points, err := SamplePoints(center, cfg.MinDistance, cfg.MaxDistance, count)
	if err != nil {
		return nil, nil, err
	}

	decoys := make([]*Session, 0, count)
	for i, pt := range points {
		decoys = append(decoys, &Session{
			ID:         fmt.Sprintf("dummy-%s-%d", creator, i),
			Position:   pt,
			LastUpdate: now,
			Dummy:      true,
			CreatorID:  creator,
		})
	}

	removed := p.ReplaceDummies(creator, decoys)
	return decoys, removed, nil
}
