// Package session holds the single bearer token obtained by logging in.
package session

import (
	"sync"
)

// Store holds at most one session token.
type Store interface {
	// Get returns the token and whether one is held.
	Get() (string, bool)
	// Set replaces the held token.
	Set(token string) error
	// Clear forgets the held token.
	Clear() error
}

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *Memory) Set(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
