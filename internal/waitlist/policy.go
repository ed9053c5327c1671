// Package waitlist holds the pure slot-allocation and promotion rules.
// Repositories call into it while holding the gathering row lock, so
// nothing here touches storage or does its own synchronization.
package waitlist

import (
	"gathering-app/internal/entity"
)

// LowestFreeSlot returns the smallest unused slot number in
// [1, maxSlots]. Freed numbers are reused before higher ones: with
// slots {1,3,4,5} of 5 the next booking gets 2, not an append past the
// capacity.
func LowestFreeSlot(occupied []int, maxSlots int) (int, bool) {
	taken := make(map[int]bool, len(occupied))
	for _, n := range occupied {
		taken[n] = true
	}
	for n := 1; n <= maxSlots; n++ {
		if !taken[n] {
			return n, true
		}
	}
	return 0, false
}

// PromoteCandidate picks the entry that fills a freed slot: the
// smallest position, i.e. the earliest joiner. Positions are unique by
// construction so no tie-break is needed.
func PromoteCandidate(entries []*entity.WaitlistEntry) (*entity.WaitlistEntry, bool) {
	if len(entries) == 0 {
		return nil, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Position < best.Position {
			best = e
		}
	}
	return best, true
}
