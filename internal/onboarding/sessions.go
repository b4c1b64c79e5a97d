package onboarding

import "sync"

// Sessions keeps each user's in-progress wizard. State is ephemeral: a
// restart simply starts the wizard over, nothing of value is lost before
// final submission.
type Sessions struct {
	mu      sync.Mutex
	byUser  map[string]*Wizard
	steps   []Step
}

func NewSessions(steps []Step) *Sessions {
	return &Sessions{byUser: make(map[string]*Wizard), steps: steps}
}

// Get returns the user's wizard, creating one on first access.
func (s *Sessions) Get(userID string) *Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byUser[userID]
	if !ok {
		w = New(s.steps)
		s.byUser[userID] = w
	}
	return w
}

// Clear drops the user's wizard after completion.
func (s *Sessions) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
