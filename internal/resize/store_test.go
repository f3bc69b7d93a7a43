package resize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/fpang/resize-images/internal/storage"
)

// memStore is an in-memory storage.ObjectStore that records every call.
type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	ops     []string

	failUpload   map[string]error // by destination key
	failDownload error
	failDelete   error
}

type memObject struct {
	data []byte
	meta storage.ObjectMetadata
}

var _ storage.ObjectStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		objects:    make(map[string]memObject),
		failUpload: make(map[string]error),
	}
}

func (m *memStore) put(key string, data []byte, meta storage.ObjectMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, meta: meta}
}

func (m *memStore) get(key string) (memObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

func (m *memStore) record(op string) {
	m.ops = append(m.ops, op)
}

func (m *memStore) calls(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, op := range m.ops {
		if len(op) >= len(prefix) && op[:len(prefix)] == prefix {
			out = append(out, op)
		}
	}
	sort.Strings(out)
	return out
}

func (m *memStore) Stat(_ context.Context, _, key string) (storage.ObjectMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("stat " + key)
	o, ok := m.objects[key]
	if !ok {
		return storage.ObjectMetadata{}, storage.ErrNotFound
	}
	return o.meta.Clone(), nil
}

func (m *memStore) Download(_ context.Context, _, key, localPath string) error {
	m.mu.Lock()
	m.record("download " + key)
	o, ok := m.objects[key]
	failErr := m.failDownload
	m.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	if !ok {
		return fmt.Errorf("get %s: %w", key, storage.ErrNotFound)
	}
	return os.WriteFile(localPath, o.data, 0o644)
}

func (m *memStore) Upload(_ context.Context, _, key, localPath string, meta storage.ObjectMetadata) error {
	m.mu.Lock()
	m.record("upload " + key)
	failErr := m.failUpload[key]
	m.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.put(key, data, meta)
	return nil
}

func (m *memStore) Delete(_ context.Context, _, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("delete " + key)
	if m.failDelete != nil {
		return m.failDelete
	}
	delete(m.objects, key)
	return nil
}

// jpegBytes returns a width x height JPEG.
func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func imageSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg.Width, cfg.Height
}
