package registration

import "sync"

// RankedList is an ordered, id-unique sequence of candidate projects; a
// candidate's position encodes the student's preference (index 0 = priority 1).
// Reordering never adds or drops candidates.
type RankedList struct {
	mu       sync.Mutex
	items    []Candidate
	dragging string
}

// NewRankedList seeds a list from candidates, keeping the first occurrence of
// each id.
func NewRankedList(candidates []Candidate) *RankedList {
	seen := make(map[string]bool, len(candidates))
	items := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.ID == "" || seen[cand.ID] {
			continue
		}
		seen[cand.ID] = true
		items = append(items, cand)
	}
	return &RankedList{items: items}
}

func (l *RankedList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Items returns a copy of the current order.
func (l *RankedList) Items() []Candidate {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]Candidate, len(l.items))
	copy(items, l.items)
	return items
}

// IDs returns the candidate ids in current priority order.
func (l *RankedList) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.items))
	for _, cand := range l.items {
		ids = append(ids, cand.ID)
	}
	return ids
}

// Active returns the top max candidates, the ones eligible for submission.
func (l *RankedList) Active(max int) []Candidate {
	l.mu.Lock()
	defer l.mu.Unlock()

	if max < 0 {
		max = 0
	}
	if max > len(l.items) {
		max = len(l.items)
	}
	items := make([]Candidate, max)
	copy(items, l.items[:max])
	return items
}

// StartDrag marks the candidate being moved, for display feedback only.
// Unknown ids are ignored.
func (l *RankedList) StartDrag(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(id) < 0 {
		return false
	}
	l.dragging = id
	return true
}

func (l *RankedList) EndDrag() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dragging = ""
}

func (l *RankedList) Dragging() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dragging
}

// MoveItem removes the candidate with activeID from its current position and
// reinserts it at overID's current position, shifting the candidates in
// between by one. It reports whether the order changed; dropping an item on
// itself or on an unknown target is a no-op.
func (l *RankedList) MoveItem(activeID, overID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if activeID == overID {
		return false
	}
	from := l.indexOf(activeID)
	to := l.indexOf(overID)
	if from < 0 || to < 0 {
		return false
	}

	item := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)

	// reinsert at the target's pre-removal index
	l.items = append(l.items, Candidate{})
	copy(l.items[to+1:], l.items[to:])
	l.items[to] = item
	return true
}

// indexOf expects l.mu to be held.
func (l *RankedList) indexOf(id string) int {
	for i, cand := range l.items {
		if cand.ID == id {
			return i
		}
	}
	return -1
}
