package registration

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrNoPlannerSession = errors.New("no planner session; load the planner first")

// Planner keeps each student's draft ranking. Drafts live in memory only:
// reordering has no server-side effect until the student submits, and a
// draft not submitted before the process recycles is simply reseeded.
type Planner struct {
	mu       sync.RWMutex
	sessions map[string]*RankedList
}

func NewPlanner() *Planner {
	return &Planner{sessions: make(map[string]*RankedList)}
}

// Session returns the student's current draft, if any.
func (p *Planner) Session(studentID string) (*RankedList, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	list, ok := p.sessions[studentID]
	return list, ok
}

// Seed starts a draft from candidates unless the student already has one;
// an existing draft (and its ordering) always wins.
func (p *Planner) Seed(studentID string, candidates []Candidate) *RankedList {
	p.mu.Lock()
	defer p.mu.Unlock()

	if list, ok := p.sessions[studentID]; ok {
		return list
	}
	list := NewRankedList(candidates)
	p.sessions[studentID] = list
	return list
}

// MoveItem reorders the student's draft.
func (p *Planner) MoveItem(studentID, activeID, overID string) (bool, error) {
	list, ok := p.Session(studentID)
	if !ok {
		return false, ErrNoPlannerSession
	}
	return list.MoveItem(activeID, overID), nil
}

// Reset drops the student's draft so the next planner load reseeds it.
func (p *Planner) Reset(studentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, studentID)
}
