package domain_test

import (
	"testing"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
)

func snap(date, clock string, buy int64) domain.Snapshot {
	q := domain.Quote{ProductName: "BẠC MIẾNG PHÚ QUÝ 999 1 LƯỢNG", BuyPrice: buy}
	return domain.Snapshot{Quotes: []domain.Quote{q}, Primary: q, UpdateDate: date, UpdateTime: clock}
}

func TestDedupKey(t *testing.T) {
	t.Parallel()
	withTS := snap("01/03/2025", "09:00", 1)
	withTS.Timestamp = 1740794400000
	if got := withTS.DedupKey(); got != "ts:1740794400000" {
		t.Fatalf("timestamp key = %q", got)
	}
	if got := snap("01/03/2025", "09:00", 1).DedupKey(); got != "dt:01/03/2025 09:00" {
		t.Fatalf("date/time key = %q", got)
	}
}

// Без timestamp снимки с одинаковыми датой и временем заменяют друг друга
func TestUpsert_SameDateTimeReplacesInPlace(t *testing.T) {
	t.Parallel()
	h := domain.NewHistory(5).
		Upsert(snap("01/03/2025", "09:00", 2300000), 5).
		Upsert(snap("01/03/2025", "09:00", 2329000), 5)

	if len(h.Snapshots) != 1 {
		t.Fatalf("len = %d, want 1", len(h.Snapshots))
	}
	if h.Snapshots[0].Primary.BuyPrice != 2329000 {
		t.Fatalf("entry not replaced: %d", h.Snapshots[0].Primary.BuyPrice)
	}
}

func TestUpsert_DifferentDateTimeAppends(t *testing.T) {
	t.Parallel()
	h := domain.NewHistory(5).
		Upsert(snap("01/03/2025", "09:00", 2300000), 5).
		Upsert(snap("01/03/2025", "09:30", 2329000), 5).
		Upsert(snap("02/03/2025", "09:00", 2339000), 5)

	if len(h.Snapshots) != 3 {
		t.Fatalf("len = %d, want 3", len(h.Snapshots))
	}
	want := []int64{2300000, 2329000, 2339000}
	for i, s := range h.Snapshots {
		if s.Primary.BuyPrice != want[i] {
			t.Fatalf("snapshots[%d] = %d, want %d", i, s.Primary.BuyPrice, want[i])
		}
	}
}

func TestUpsert_SortsAndBounds(t *testing.T) {
	t.Parallel()
	h := domain.NewHistory(3)
	for _, ts := range []int64{50, 10, 40, 20, 30} {
		s := snap("", "", ts)
		s.Timestamp = ts
		h = h.Upsert(s, 3)
	}
	if len(h.Snapshots) != 3 || h.MaxHistory != 3 {
		t.Fatalf("history = %+v", h)
	}
	for i, want := range []int64{30, 40, 50} {
		if h.Snapshots[i].Timestamp != want {
			t.Fatalf("snapshots[%d].Timestamp = %d, want %d", i, h.Snapshots[i].Timestamp, want)
		}
	}
}

// Clamp к меньшей границе оставляет самые новые записи
func TestClamp_KeepsNewest(t *testing.T) {
	t.Parallel()
	h := domain.NewHistory(5)
	for i := int64(1); i <= 5; i++ {
		s := snap("", "", i*1000)
		s.Timestamp = i
		h = h.Upsert(s, 5)
	}

	c := h.Clamp(2)
	if len(c.Snapshots) != 2 || c.MaxHistory != 2 {
		t.Fatalf("clamped = %+v", c)
	}
	if c.Snapshots[0].Timestamp != 4 || c.Snapshots[1].Timestamp != 5 {
		t.Fatalf("kept %d,%d, want 4,5", c.Snapshots[0].Timestamp, c.Snapshots[1].Timestamp)
	}
	if len(h.Snapshots) != 5 {
		t.Fatalf("source history mutated: %d", len(h.Snapshots))
	}
}

func TestRecent(t *testing.T) {
	t.Parallel()
	h := domain.NewHistory(5)
	for i := int64(1); i <= 3; i++ {
		s := snap("", "", i)
		s.Timestamp = i
		h = h.Upsert(s, 5)
	}

	// n больше окна - всё окно по возрастанию
	all := h.Recent(10)
	if len(all) != 3 || all[0].Timestamp != 1 || all[2].Timestamp != 3 {
		t.Fatalf("recent(10) = %+v", all)
	}
	last := h.Recent(2)
	if len(last) != 2 || last[0].Timestamp != 2 || last[1].Timestamp != 3 {
		t.Fatalf("recent(2) = %+v", last)
	}
	if got := domain.NewHistory(5).Recent(3); len(got) != 0 {
		t.Fatalf("empty recent = %+v", got)
	}
}

func TestStamp_FillsFromSameInstant(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("ICT", 7*3600)
	s := snap("", "", 1)
	s.Stamp(time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC), loc)

	if s.Timestamp != time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC).UnixMilli() {
		t.Fatalf("timestamp = %d", s.Timestamp)
	}
	if s.UpdateDate != "01/03/2025" || s.UpdateTime != "09:00" {
		t.Fatalf("date/time = %s %s", s.UpdateDate, s.UpdateTime)
	}

	kept := snap("28/02/2025", "17:30", 1)
	kept.Stamp(time.Now(), loc)
	if kept.UpdateDate != "28/02/2025" || kept.UpdateTime != "17:30" {
		t.Fatalf("feed stamps overwritten: %s %s", kept.UpdateDate, kept.UpdateTime)
	}
}
