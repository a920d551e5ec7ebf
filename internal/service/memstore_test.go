package service

import (
	"context"
	"strings"
	"sync"

	"github.com/jack/golang-slug-link-service/internal/model"
	"github.com/jack/golang-slug-link-service/internal/repository"
)

// memStore is an in-memory LinkStore with the same visible behavior as the
// Redis repository, including the log cap.
type memStore struct {
	mu     sync.Mutex
	links  map[string]model.Link
	clicks map[string]int64
	days   map[string]int64 // keyed day + ":" + code
	logs   map[string][]model.ClickLogEntry
}

func newMemStore() *memStore {
	return &memStore{
		links:  make(map[string]model.Link),
		clicks: make(map[string]int64),
		days:   make(map[string]int64),
		logs:   make(map[string][]model.ClickLogEntry),
	}
}

func (m *memStore) GetLink(_ context.Context, code string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	out := link
	return &out, nil
}

func (m *memStore) PutLink(_ context.Context, code string, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[code] = *link
	return nil
}

func (m *memStore) DeleteLink(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, code)
	return nil
}

func (m *memStore) ListLinkCodes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.links))
	for code := range m.links {
		codes = append(codes, code)
	}
	return codes, nil
}

func (m *memStore) IncrClicks(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks[code]++
	return nil
}

func (m *memStore) GetClicks(_ context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks[code], nil
}

func (m *memStore) DeleteClicks(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clicks, code)
	return nil
}

func (m *memStore) IncrDay(_ context.Context, day, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[day+":"+code]++
	return nil
}

func (m *memStore) GetDay(_ context.Context, day, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.days[day+":"+code], nil
}

func (m *memStore) PruneDays(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.days {
		if strings.HasSuffix(key, ":"+code) {
			delete(m.days, key)
		}
	}
	return nil
}

func (m *memStore) PushLog(_ context.Context, code string, entry model.ClickLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := append([]model.ClickLogEntry{entry}, m.logs[code]...)
	if len(logs) > repository.LogCap {
		logs = logs[:repository.LogCap]
	}
	m.logs[code] = logs
	return nil
}

func (m *memStore) GetLogs(_ context.Context, code string, limit int) ([]model.ClickLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := m.logs[code]
	if limit >= 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	out := make([]model.ClickLogEntry, len(logs))
	copy(out, logs)
	return out, nil
}

func (m *memStore) DeleteLogs(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, code)
	return nil
}

func (m *memStore) clickTotal(code string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks[code]
}

func (m *memStore) logLen(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs[code])
}
