package waitlist

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gathering-app/internal/entity"
)

func TestLowestFreeSlot(t *testing.T) {
	tests := []struct {
		name     string
		occupied []int
		maxSlots int
		want     int
		ok       bool
	}{
		{
			name:     "empty gathering starts at one",
			occupied: nil,
			maxSlots: 5,
			want:     1,
			ok:       true,
		},
		{
			name:     "fills gap before appending",
			occupied: []int{1, 3, 4, 5},
			maxSlots: 5,
			want:     2,
			ok:       true,
		},
		{
			name:     "appends after contiguous prefix",
			occupied: []int{1, 2},
			maxSlots: 5,
			want:     3,
			ok:       true,
		},
		{
			name:     "full gathering has no free slot",
			occupied: []int{1, 2, 3},
			maxSlots: 3,
			want:     0,
			ok:       false,
		},
		{
			name:     "gap in the middle of capacity three",
			occupied: []int{1, 3},
			maxSlots: 3,
			want:     2,
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LowestFreeSlot(tt.occupied, tt.maxSlots)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func makeEntries(positions ...int) []*entity.WaitlistEntry {
	entries := make([]*entity.WaitlistEntry, 0, len(positions))
	for _, p := range positions {
		entries = append(entries, &entity.WaitlistEntry{
			ID:       uuid.New(),
			UserID:   uuid.New(),
			Position: p,
			JoinedAt: time.Now(),
		})
	}
	return entries
}

func TestPromoteCandidate(t *testing.T) {
	t.Run("empty waitlist yields no candidate", func(t *testing.T) {
		_, ok := PromoteCandidate(nil)
		assert.False(t, ok)
	})

	t.Run("earliest joiner wins regardless of slice order", func(t *testing.T) {
		entries := makeEntries(3, 1, 2)
		candidate, ok := PromoteCandidate(entries)
		require.True(t, ok)
		assert.Equal(t, 1, candidate.Position)
	})
}
