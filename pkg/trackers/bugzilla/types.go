package bugzilla

import (
	"encoding/json"
	"time"

	"github.com/trackstats/trackstats/pkg/trackers"
)

// Bug is a single bug record from the Bugzilla REST API, reduced to the
// fields the reports consume.
//
// Timestamps are parsed at decode time; LastResolved is nil for bugs
// that were never resolved. Duplicates lists the bug ids marked as
// duplicates of this bug.
type Bug struct {
	ID           int        `json:"id"`
	Summary      string     `json:"summary"`
	Status       string     `json:"status"`
	Resolution   string     `json:"resolution"`
	Product      string     `json:"product"`
	Component    string     `json:"component"`
	Type         string     `json:"type"`
	Priority     string     `json:"priority"`
	Severity     string     `json:"severity"`
	Keywords     []string   `json:"keywords"`
	Whiteboard   string     `json:"whiteboard"`
	Creator      string     `json:"creator"`
	Votes        int        `json:"votes"`
	Duplicates   []int      `json:"duplicates"`
	IsOpen       bool       `json:"is_open"`
	Created      time.Time  `json:"-"`
	LastResolved *time.Time `json:"-"`
}

// bugWire carries the raw timestamp strings alongside the typed fields.
type bugWire struct {
	ID           int      `json:"id"`
	Summary      string   `json:"summary"`
	Status       string   `json:"status"`
	Resolution   string   `json:"resolution"`
	Product      string   `json:"product"`
	Component    string   `json:"component"`
	Type         string   `json:"type"`
	Priority     string   `json:"priority"`
	Severity     string   `json:"severity"`
	Keywords     []string `json:"keywords"`
	Whiteboard   string   `json:"whiteboard"`
	Creator      string   `json:"creator"`
	Votes        int      `json:"votes"`
	Duplicates   []int    `json:"duplicates"`
	IsOpen       bool     `json:"is_open"`
	CreationTime string   `json:"creation_time"`
	LastResolved string   `json:"cf_last_resolved"`
}

// UnmarshalJSON decodes a bug and parses its timestamps. A malformed
// creation_time is an error; a malformed or absent cf_last_resolved
// leaves LastResolved nil.
func (b *Bug) UnmarshalJSON(data []byte) error {
	var w bugWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	created, err := trackers.ParseTime(w.CreationTime)
	if err != nil {
		return err
	}

	*b = Bug{
		ID:         w.ID,
		Summary:    w.Summary,
		Status:     w.Status,
		Resolution: w.Resolution,
		Product:    w.Product,
		Component:  w.Component,
		Type:       w.Type,
		Priority:   w.Priority,
		Severity:   w.Severity,
		Keywords:   w.Keywords,
		Whiteboard: w.Whiteboard,
		Creator:    w.Creator,
		Votes:      w.Votes,
		Duplicates: w.Duplicates,
		IsOpen:     w.IsOpen,
		Created:    created,
	}
	if resolved, err := trackers.ParseTime(w.LastResolved); err == nil && !resolved.IsZero() {
		b.LastResolved = &resolved
	}
	return nil
}

// MarshalJSON emits the wire form so cached snapshots round-trip.
func (b Bug) MarshalJSON() ([]byte, error) {
	w := bugWire{
		ID:           b.ID,
		Summary:      b.Summary,
		Status:       b.Status,
		Resolution:   b.Resolution,
		Product:      b.Product,
		Component:    b.Component,
		Type:         b.Type,
		Priority:     b.Priority,
		Severity:     b.Severity,
		Keywords:     b.Keywords,
		Whiteboard:   b.Whiteboard,
		Creator:      b.Creator,
		Votes:        b.Votes,
		Duplicates:   b.Duplicates,
		IsOpen:       b.IsOpen,
		CreationTime: b.Created.UTC().Format(time.RFC3339),
	}
	if b.LastResolved != nil {
		w.LastResolved = b.LastResolved.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// ResolutionDuration returns how long the bug stayed open, when it was
// resolved. The second return value is false for unresolved bugs.
func (b Bug) ResolutionDuration() (time.Duration, bool) {
	if b.LastResolved == nil {
		return 0, false
	}
	return b.LastResolved.Sub(b.Created), true
}

// Statuses in Bugzilla's standard workflow, in lifecycle order.
var Statuses = []string{
	"UNCONFIRMED",
	"NEW",
	"ASSIGNED",
	"REOPENED",
	"RESOLVED",
	"VERIFIED",
	"CLOSED",
}

// Resolutions a closed bug can carry.
var Resolutions = []string{
	"FIXED",
	"INVALID",
	"WONTFIX",
	"DUPLICATE",
	"WORKSFORME",
	"INCOMPLETE",
	"MOVED",
}
