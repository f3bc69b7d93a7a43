package storage

import (
	"errors"
	"io"
	"testing"
)

func TestObjectMetadataClone(t *testing.T) {
	orig := ObjectMetadata{
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"owner": "alice"},
	}

	c := orig.Clone()
	c.Metadata["owner"] = "bob"
	c.ContentType = "image/png"

	if orig.Metadata["owner"] != "alice" {
		t.Errorf("Clone() shares metadata map: original owner = %q, want %q", orig.Metadata["owner"], "alice")
	}
	if orig.ContentType != "image/jpeg" {
		t.Errorf("original ContentType = %q, want %q", orig.ContentType, "image/jpeg")
	}
}

func TestObjectMetadataCloneNilMap(t *testing.T) {
	c := ObjectMetadata{}.Clone()
	if c.Metadata != nil {
		t.Errorf("Clone() of nil metadata = %v, want nil", c.Metadata)
	}
}

func TestLowerKeys(t *testing.T) {
	got := lowerKeys(map[string]string{"Resizedimage": "true", "downloadtokens": "abc"})
	if got["resizedimage"] != "true" {
		t.Errorf("lowerKeys()[resizedimage] = %q, want %q", got["resizedimage"], "true")
	}
	if got["downloadtokens"] != "abc" {
		t.Errorf("lowerKeys()[downloadtokens] = %q, want %q", got["downloadtokens"], "abc")
	}
	if lowerKeys(nil) != nil {
		t.Error("lowerKeys(nil) should be nil")
	}
}

func TestProjectTagging(t *testing.T) {
	a := ProjectTagging()
	b := ProjectTagging()
	if *a != "Project=resize-images" {
		t.Errorf("ProjectTagging() = %q, want %q", *a, "Project=resize-images")
	}
	if a == b {
		t.Error("ProjectTagging() should return a fresh pointer each call")
	}
}

func TestNewMinioStoreValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  MinioConfig
	}{
		{"missing endpoint", MinioConfig{AccessKey: "a", SecretKey: "b"}},
		{"missing access key", MinioConfig{Endpoint: "localhost:9000", SecretKey: "b"}},
		{"missing secret key", MinioConfig{Endpoint: "localhost:9000", AccessKey: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMinioStore(tt.cfg); err == nil {
				t.Errorf("NewMinioStore(%+v) should fail", tt.cfg)
			}
		})
	}
}

func TestNewMinioStoreStripsScheme(t *testing.T) {
	s, err := NewMinioStore(MinioConfig{
		Endpoint:  "http://localhost:9000/",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	if err != nil {
		t.Fatalf("NewMinioStore() error = %v", err)
	}
	if got := s.client.EndpointURL().Host; got != "localhost:9000" {
		t.Errorf("endpoint host = %q, want %q", got, "localhost:9000")
	}
	if got := s.client.EndpointURL().Scheme; got != "http" {
		t.Errorf("endpoint scheme = %q, want %q", got, "http")
	}
}

type fakeFile struct {
	closed   bool
	closeErr error
}

func (f *fakeFile) WriteAt(p []byte, _ int64) (int, error) { return len(p), nil }

func (f *fakeFile) Close() error {
	f.closed = true
	return f.closeErr
}

func TestFetchAndClose(t *testing.T) {
	errFetch := errors.New("connection reset")
	errClose := errors.New("disk full")

	tests := []struct {
		name     string
		fetchErr error
		closeErr error
		want     error
	}{
		{"success", nil, nil, nil},
		{"close failure surfaces", nil, errClose, errClose},
		{"fetch failure wins", errFetch, errClose, errFetch},
		{"fetch failure", errFetch, nil, errFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFile{closeErr: tt.closeErr}
			n, err := fetchAndClose(f, func(w io.WriterAt) (int64, error) {
				if _, err := w.WriteAt([]byte("abc"), 0); err != nil {
					return 0, err
				}
				return 3, tt.fetchErr
			})
			if !f.closed {
				t.Error("file not closed")
			}
			if n != 3 {
				t.Errorf("fetchAndClose() n = %d, want 3", n)
			}
			if tt.want == nil {
				if err != nil {
					t.Errorf("fetchAndClose() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("fetchAndClose() error = %v, want %v", err, tt.want)
			}
		})
	}
}
