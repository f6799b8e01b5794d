package app

import "sync"

// StudentLocks hands out one mutex per student id. Submissions, standalone
// badge evaluation, and daily-pick writes for the same student all serialize
// on it; different students never share a lock. One instance is shared by
// every service that mutates student aggregates. Locks are never reclaimed,
// which is fine for the student counts this service sees.
type StudentLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStudentLocks() *StudentLocks {
	return &StudentLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *StudentLocks) For(studentID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.locks[studentID]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.locks[studentID] = m
	return m
}
