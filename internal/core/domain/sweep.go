package domain

import (
	"fmt"
	"time"
)

// SweepEntry describes one user handled by an expiry sweep.
type SweepEntry struct {
	UserID    UserID
	Label     string
	Remaining time.Duration
	Forced    bool
	Notified  bool
}

// SweepReport is the outcome of a single sweep tick.
type SweepReport struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Removed     []SweepEntry
	StillActive []SweepEntry
	Skipped     int
}

func (r *SweepReport) RemovedIDs() []UserID {
	ids := make([]UserID, 0, len(r.Removed))
	for _, e := range r.Removed {
		ids = append(ids, e.UserID)
	}
	return ids
}

func (r *SweepReport) ActiveIDs() []UserID {
	ids := make([]UserID, 0, len(r.StillActive))
	for _, e := range r.StillActive {
		ids = append(ids, e.UserID)
	}
	return ids
}

// ForcedCount returns how many removals went through the forced path.
func (r *SweepReport) ForcedCount() int {
	n := 0
	for _, e := range r.Removed {
		if e.Forced {
			n++
		}
	}
	return n
}

// UserLabel formats "name (id)".
func UserLabel(name string, id UserID) string {
	return fmt.Sprintf("%s (%d)", name, id)
}

// UnknownLabel is used for users removed through the forced path.
func UnknownLabel(id UserID) string {
	return UserLabel("Unknown", id)
}
