package s3

import (
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"
)

// MemoryClient is a BasicClient that keeps objects in a map.
// It is used for local dry runs and tests.
type MemoryClient struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryClient(bucket string) *MemoryClient {
	return &MemoryClient{bucket: bucket, objects: make(map[string][]byte)}
}

func (m *MemoryClient) Bucket() string {
	return m.bucket
}

func (m *MemoryClient) List(key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.objects {
		if strings.HasPrefix(k, key) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryClient) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryClient) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(data))
	copy(b, data)
	m.objects[key] = b
	return nil
}

func (m *MemoryClient) BufferPut(key string, buf io.ReadSeeker) error {
	b, err := ioutil.ReadAll(buf)
	if err != nil {
		return err
	}
	return m.Put(key, b)
}
