// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import "testing"

func TestReporterMonotone(t *testing.T) {
	var got []int
	r := NewReporter(func(u Update) { got = append(got, u.Percent) })

	r.Report("planning", "planning sections", 5)
	r.Report("section", "section 1", 20)
	r.Report("section", "stale update", 10)
	r.Report("assembly", "assembling", 90)
	r.Report("done", "overflow", 150)

	want := []int{5, 20, 20, 90, 100}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d percent = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestReporterNilFunc(t *testing.T) {
	r := NewReporter(nil)
	// Must not panic.
	r.Report("planning", "msg", 5)
	r.Report("done", "msg", 100)
}
