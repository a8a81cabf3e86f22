// internal/status/snapshot.go
package status

import (
	"time"

	"github.com/tamzrod/sunhome-poller/internal/registers"
)

// Snapshot is one fully decoded poll.
// Published whole or not at all; never mutated after publication.
type Snapshot struct {
	Values     registers.Values
	Timestamp  time.Time
	Generation uint64
}

// PollFailure is the latest failed poll, surfaced beside the last good snapshot.
type PollFailure struct {
	Reason string
	Code   uint16
	At     time.Time

	// Since is the first failure of the current failing streak.
	Since time.Time
	// Consecutive counts failures since the last successful publish.
	Consecutive int
}

// View is what consumers observe: the last snapshot (nil before the first
// publish), the live failure if any, and the derived health.
type View struct {
	Snapshot *Snapshot
	Failure  *PollFailure
	Health   uint16
}

func health(snap *Snapshot, failure *PollFailure) uint16 {
	switch {
	case failure == nil && snap == nil:
		return HealthUnknown
	case failure == nil:
		return HealthOK
	case snap == nil:
		return HealthError
	default:
		return HealthStale
	}
}
