package migration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// memStore 测试用的内存存储
type memStore struct {
	mu        sync.Mutex
	path      string
	data      map[string]json.RawMessage
	recorded  Version
	history   []Version
	recordErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]json.RawMessage)}
}

func (s *memStore) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *memStore) Set(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = b
	return nil
}

func (s *memStore) RecordVersion(_ context.Context, v Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = v
	s.history = append(s.history, v)
	return nil
}

func (s *memStore) RecordedVersion() Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded
}

func (s *memStore) Path() string {
	return s.path
}

// appendStep 返回向 "steps" 列表追加 name 的迁移
func appendStep(name string) RunFunc {
	return func(s Snapshot) error {
		var steps []string
		if _, err := s.Get("steps", &steps); err != nil {
			return err
		}
		return s.Set("steps", append(steps, name))
	}
}

func failStep(err error) RunFunc {
	return func(Snapshot) error { return err }
}

func stepsOf(t interface{ Helper() }, s *memStore) []string {
	t.Helper()
	var steps []string
	_, _ = s.Get("steps", &steps)
	return steps
}

var errBoom = errors.New("boom")
