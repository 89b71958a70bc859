package registration

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func candidates(n int) []Candidate {
	cands := make([]Candidate, 0, n)
	for i := 1; i <= n; i++ {
		cands = append(cands, Candidate{
			ID:            fmt.Sprintf("p%d", i),
			Title:         fmt.Sprintf("Project %d", i),
			FacultyName:   "Dr. T",
			ProgrammeName: "CSC",
		})
	}
	return cands
}

func TestNewRankedList_dedup(t *testing.T) {
	cands := candidates(3)
	cands = append(cands, cands[0], Candidate{}) // duplicate id + empty id
	list := NewRankedList(cands)
	assert.Equal(t, []string{"p1", "p2", "p3"}, list.IDs())
}

func TestRankedList_MoveItem(t *testing.T) {
	tests := []struct {
		name      string
		activeID  string
		overID    string
		wantMoved bool
		wantOrder []string
	}{
		{
			name: "move to top", activeID: "p7", overID: "p1", wantMoved: true,
			wantOrder: []string{"p7", "p1", "p2", "p3", "p4", "p5", "p6"},
		},
		{
			name: "move to bottom", activeID: "p1", overID: "p7", wantMoved: true,
			wantOrder: []string{"p2", "p3", "p4", "p5", "p6", "p7", "p1"},
		},
		{
			name: "move down one", activeID: "p2", overID: "p3", wantMoved: true,
			wantOrder: []string{"p1", "p3", "p2", "p4", "p5", "p6", "p7"},
		},
		{
			name: "move up the middle", activeID: "p5", overID: "p2", wantMoved: true,
			wantOrder: []string{"p1", "p5", "p2", "p3", "p4", "p6", "p7"},
		},
		{
			name: "self drop is a no-op", activeID: "p4", overID: "p4", wantMoved: false,
			wantOrder: []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"},
		},
		{
			name: "unknown target is a no-op", activeID: "p4", overID: "nope", wantMoved: false,
			wantOrder: []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"},
		},
		{
			name: "unknown item is a no-op", activeID: "nope", overID: "p4", wantMoved: false,
			wantOrder: []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := NewRankedList(candidates(7))
			moved := list.MoveItem(tt.activeID, tt.overID)
			assert.Equal(t, tt.wantMoved, moved)
			assert.Equal(t, tt.wantOrder, list.IDs())
		})
	}
}

// the id set must survive any sequence of moves; only order changes
func TestRankedList_setPreservation(t *testing.T) {
	list := NewRankedList(candidates(10))
	want := list.IDs()
	sort.Strings(want)

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 1000; i++ {
		activeID := fmt.Sprintf("p%d", rng.Intn(10)+1)
		overID := fmt.Sprintf("p%d", rng.Intn(10)+1)
		list.MoveItem(activeID, overID)

		got := list.IDs()
		assert.Len(t, got, 10)
		sort.Strings(got)
		assert.Equal(t, want, got)
	}
}

func TestRankedList_Active(t *testing.T) {
	list := NewRankedList(candidates(7))

	active := list.Active(5)
	assert.Len(t, active, 5)
	assert.Equal(t, "p1", active[0].ID)
	assert.Equal(t, "p5", active[4].ID)

	// fewer candidates than the window: all are active
	small := NewRankedList(candidates(3))
	assert.Len(t, small.Active(5), 3)

	assert.Empty(t, list.Active(0))
	assert.Empty(t, list.Active(-1))
}

func TestRankedList_drag(t *testing.T) {
	list := NewRankedList(candidates(3))

	assert.False(t, list.StartDrag("nope"))
	assert.Empty(t, list.Dragging())

	assert.True(t, list.StartDrag("p2"))
	assert.Equal(t, "p2", list.Dragging())

	// dragging carries no data-model consequence
	assert.Equal(t, []string{"p1", "p2", "p3"}, list.IDs())

	list.EndDrag()
	assert.Empty(t, list.Dragging())
}
