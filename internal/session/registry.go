package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionActive means a live session for this exam and student already
// exists; concurrent sessions for the same exam are not permitted.
var ErrSessionActive = errors.New("an active session for this exam already exists")

// Registry tracks live sessions, at most one per (student, exam).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*ExamSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*ExamSession)}
}

func registryKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", studentID, examID)
}

// Get returns the live session for (student, exam), if any.
func (r *Registry) Get(studentID int, examID uuid.UUID) (*ExamSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[registryKey(studentID, examID)]
	return s, ok
}

// Put registers a session. Fails if one is already live for the pair.
func (r *Registry) Put(s *ExamSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(s.StudentID(), s.ExamID())
	if _, exists := r.sessions[key]; exists {
		return ErrSessionActive
	}
	r.sessions[key] = s
	return nil
}

// Remove drops a session from the registry and stops its ticker.
func (r *Registry) Remove(studentID int, examID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(studentID, examID)
	if s, ok := r.sessions[key]; ok {
		s.Close()
		delete(r.sessions, key)
	}
}

// CloseAll stops every live session. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.sessions {
		s.Close()
		delete(r.sessions, key)
	}
}
