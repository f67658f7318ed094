// Package scene keeps the latest body snapshot reported by the detector and
// a short history of which body IDs have been seen.
package scene

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Track is the per-ID history of a detected body.
type Track struct {
	ID        int       `json:"id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"` // Snapshots this ID appeared in
	Root      r3.Vec    `json:"-"`      // Last reported root position
}

// Stats summarises the store for the status API.
type Stats struct {
	Frames     uint64        `json:"frames"`      // Snapshots received
	Bodies     int           `json:"bodies"`      // Bodies in the latest snapshot
	Tracks     int           `json:"tracks"`      // IDs seen within the forget timeout
	Duplicates uint64        `json:"duplicates"`  // Bodies dropped for a repeated ID
	LastUpdate time.Time     `json:"last_update"` // Zero if nothing received yet
	Age        time.Duration `json:"age_ns"`      // Time since the last snapshot
	Stale      bool          `json:"stale"`
}
