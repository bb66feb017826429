package domain

import (
	"sort"
	"strconv"
	"time"
)

// Snapshot - one point-in-time capture of all quotes plus feed metadata.
// UpdateDate/UpdateTime are the human readable feed stamps (DD/MM/YYYY, HH:MM),
// Timestamp is the capture instant in epoch milliseconds.
type Snapshot struct {
	Quotes     []Quote `json:"quotes"`
	Primary    Quote   `json:"primary"`
	UpdateDate string  `json:"updateDate"`
	UpdateTime string  `json:"updateTime"`
	Timestamp  int64   `json:"timestamp"`
}

const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// FindQuote returns the quote with the given product name, if present.
func (s Snapshot) FindQuote(name string) (Quote, bool) {
	for _, q := range s.Quotes {
		if q.SameProduct(name) {
			return q, true
		}
	}
	return Quote{}, false
}

// DedupKey - timestamp when set, otherwise the feed date/time pair.
func (s Snapshot) DedupKey() string {
	if s.Timestamp != 0 {
		return "ts:" + strconv.FormatInt(s.Timestamp, 10)
	}
	return "dt:" + s.UpdateDate + " " + s.UpdateTime
}

// Stamp assigns the capture timestamp when absent and fills empty date/time text
// from the same instant so both representations stay consistent.
func (s *Snapshot) Stamp(now time.Time, loc *time.Location) {
	if s.Timestamp == 0 {
		s.Timestamp = now.UnixMilli()
	}
	if loc == nil {
		loc = time.UTC
	}
	at := time.UnixMilli(s.Timestamp).In(loc)
	if s.UpdateDate == "" {
		s.UpdateDate = at.Format(DateLayout)
	}
	if s.UpdateTime == "" {
		s.UpdateTime = at.Format(TimeLayout)
	}
}

// DefaultMaxHistory - size of the chart window.
const DefaultMaxHistory = 5

// History - bounded, ascending window of past snapshots.
type History struct {
	Snapshots  []Snapshot `json:"snapshots"`
	MaxHistory int        `json:"maxHistory"`
}

// NewHistory returns an empty history with the given bound.
func NewHistory(maxHistory int) History {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return History{Snapshots: []Snapshot{}, MaxHistory: maxHistory}
}

// Upsert replaces the entry sharing the snapshot's dedup key or appends it,
// then re-sorts ascending by timestamp and keeps the last maxHistory entries.
func (h History) Upsert(s Snapshot, maxHistory int) History {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	out := make([]Snapshot, 0, len(h.Snapshots)+1)
	key := s.DedupKey()
	replaced := false
	for _, old := range h.Snapshots {
		if !replaced && old.DedupKey() == key {
			out = append(out, s)
			replaced = true
			continue
		}
		out = append(out, old)
	}
	if !replaced {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return History{Snapshots: out, MaxHistory: maxHistory}.Clamp(maxHistory)
}

// Clamp keeps at most maxHistory most recent entries and records the bound.
func (h History) Clamp(maxHistory int) History {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	snaps := h.Snapshots
	if snaps == nil {
		snaps = []Snapshot{}
	}
	if len(snaps) > maxHistory {
		snaps = append([]Snapshot(nil), snaps[len(snaps)-maxHistory:]...)
	}
	return History{Snapshots: snaps, MaxHistory: maxHistory}
}

// Recent returns up to n most recent snapshots in ascending order.
func (h History) Recent(n int) []Snapshot {
	if n <= 0 || n > len(h.Snapshots) {
		n = len(h.Snapshots)
	}
	out := make([]Snapshot, n)
	copy(out, h.Snapshots[len(h.Snapshots)-n:])
	return out
}
