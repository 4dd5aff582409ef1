package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore 内存对象存储，未配置MinIO时及测试中使用
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	// Fail 非空时所有读操作返回该错误
	Fail error
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	s.mu.Lock()
	s.objects[objectName] = memoryObject{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, objectName string) (io.ReadCloser, int64, error) {
	if s.Fail != nil {
		return nil, 0, s.Fail
	}
	s.mu.RLock()
	obj, ok := s.objects[objectName]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), int64(len(obj.data)), nil
}

func (s *MemoryStore) Remove(ctx context.Context, objectName string) error {
	s.mu.Lock()
	delete(s.objects, objectName)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) URL(ctx context.Context, objectName string) (string, error) {
	return "memory://" + objectName, nil
}

// Has 对象是否存在
func (s *MemoryStore) Has(objectName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[objectName]
	return ok
}

// Len 对象数量
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
