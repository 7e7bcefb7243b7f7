package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Gateway for tests.
type Memory struct {
	// FailPut, when set, is consulted before every Put; a non-nil result is
	// returned as a TransportError.
	FailPut func(PutInput) error
	BaseURL string

	mu      sync.Mutex
	objects map[string]*Object
	puts    []PutInput
	fetches int
}

func NewMemory() *Memory {
	return &Memory{
		BaseURL: "memory://local",
		objects: make(map[string]*Object),
	}
}

func memoryKey(bucket, key string) string { return bucket + "/" + key }

// Add seeds an object without recording a Put.
func (m *Memory) Add(bucket, key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memoryKey(bucket, key)] = &Object{
		Bucket:      bucket,
		Key:         key,
		Data:        data,
		ContentType: contentType,
	}
}

func (m *Memory) Fetch(_ context.Context, bucket, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++

	obj, ok := m.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, ErrNotFound)
	}
	cp := *obj
	return &cp, nil
}

func (m *Memory) Put(_ context.Context, in PutInput) (*PutResult, error) {
	if m.FailPut != nil {
		if err := m.FailPut(in); err != nil {
			return nil, &TransportError{Op: "put", Bucket: in.Bucket, Key: in.Key, Err: err}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, in)
	m.objects[memoryKey(in.Bucket, in.Key)] = &Object{
		Bucket:       in.Bucket,
		Key:          in.Key,
		Data:         in.Data,
		ContentType:  in.ContentType,
		ACL:          ACLPublicRead,
		StorageClass: StorageClassReducedRedundancy,
	}
	return &PutResult{
		SizeBytes: int64(len(in.Data)),
		URL:       pathStyleURL(m.BaseURL, in.Bucket, in.Key),
	}, nil
}

func (m *Memory) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for _, obj := range m.objects {
		if obj.Bucket == bucket && strings.HasPrefix(obj.Key, prefix) {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Puts returns the successful puts in call order.
func (m *Memory) Puts() []PutInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PutInput, len(m.puts))
	copy(out, m.puts)
	return out
}

func (m *Memory) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *Memory) Object(bucket, key string) (*Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, false
	}
	cp := *obj
	return &cp, true
}
