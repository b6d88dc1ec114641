package credstore

import "sync"

// Memory is an in-memory Store for tests and ephemeral sessions
type Memory struct {
	mu      sync.Mutex
	access  string
	refresh string

	// SaveErr, when set, is returned by SaveTokens and SaveAccessToken
	// without mutating the store. Lets tests exercise write failures.
	SaveErr error
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.access = access
	m.refresh = refresh
	return nil
}

func (m *Memory) SaveAccessToken(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.access = access
	return nil
}

func (m *Memory) AccessToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, nil
}

func (m *Memory) RefreshToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	return nil
}

// Empty reports whether the store holds no tokens at all
func (m *Memory) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access == "" && m.refresh == ""
}
