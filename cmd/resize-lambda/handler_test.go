package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/resize-images/internal/resize"
	"github.com/fpang/resize-images/internal/storage"
)

type statStore struct {
	storage.ObjectStore
	objects map[string]storage.ObjectMetadata
	err     error
}

func (s *statStore) Stat(_ context.Context, _, key string) (storage.ObjectMetadata, error) {
	if s.err != nil {
		return storage.ObjectMetadata{}, s.err
	}
	meta, ok := s.objects[key]
	if !ok {
		return storage.ObjectMetadata{}, fmt.Errorf("head %s: %w", key, storage.ErrNotFound)
	}
	return meta, nil
}

type fakeProcessor struct {
	objects []resize.Object
	report  func(resize.Object) (*resize.Report, error)
}

func (f *fakeProcessor) Process(_ context.Context, obj resize.Object) (*resize.Report, error) {
	f.objects = append(f.objects, obj)
	if f.report != nil {
		return f.report(obj)
	}
	return &resize.Report{Bucket: obj.Bucket, Key: obj.Key}, nil
}

func s3Event(bucket string, keys ...string) events.S3Event {
	var event events.S3Event
	for _, k := range keys {
		var r events.S3EventRecord
		r.S3.Bucket.Name = bucket
		r.S3.Object.Key = k
		event.Records = append(event.Records, r)
	}
	return event
}

func metricDocs(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var docs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			t.Fatalf("metrics line is not JSON: %v\n%s", err, line)
		}
		docs = append(docs, doc)
	}
	return docs
}

func TestHandleDecodesKeysAndPassesMetadata(t *testing.T) {
	store := &statStore{objects: map[string]storage.ObjectMetadata{
		"my photos/cat+dog.jpg": {ContentType: "image/jpeg", Metadata: map[string]string{"owner": "a"}},
	}}
	proc := &fakeProcessor{}
	var out bytes.Buffer
	h := &handler{store: store, processor: proc, namespace: "Test", metrics: &out}

	if err := h.handle(context.Background(), s3Event("media", "my+photos/cat%2Bdog.jpg")); err != nil {
		t.Fatalf("handle() = %v, want nil", err)
	}
	if len(proc.objects) != 1 {
		t.Fatalf("Process called %d times, want 1", len(proc.objects))
	}
	obj := proc.objects[0]
	if obj.Bucket != "media" || obj.Key != "my photos/cat+dog.jpg" {
		t.Errorf("object = %s/%s, want media/my photos/cat+dog.jpg", obj.Bucket, obj.Key)
	}
	if obj.ContentType != "image/jpeg" || obj.Metadata["owner"] != "a" {
		t.Errorf("metadata = %+v", obj.ObjectMetadata)
	}
}

func TestHandleAlwaysReturnsNil(t *testing.T) {
	tests := []struct {
		name  string
		store *statStore
		proc  *fakeProcessor
	}{
		{"stat failure", &statStore{err: errors.New("throttled")}, &fakeProcessor{}},
		{"missing object", &statStore{objects: map[string]storage.ObjectMetadata{}}, &fakeProcessor{}},
		{"download failure", &statStore{objects: map[string]storage.ObjectMetadata{"a.jpg": {ContentType: "image/jpeg"}}}, &fakeProcessor{
			report: func(obj resize.Object) (*resize.Report, error) {
				return &resize.Report{Key: obj.Key}, fmt.Errorf("%w: boom", resize.ErrDownload)
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := &handler{store: tt.store, processor: tt.proc, namespace: "Test", metrics: &out}
			if err := h.handle(context.Background(), s3Event("b", "a.jpg")); err != nil {
				t.Errorf("handle() = %v, want nil", err)
			}
			docs := metricDocs(t, &out)
			if len(docs) != 1 || docs[0]["Outcome"] != outcomeFailed {
				t.Errorf("metrics = %v, want one failed outcome", docs)
			}
		})
	}
}

func TestHandleContinuesAfterBadRecord(t *testing.T) {
	store := &statStore{objects: map[string]storage.ObjectMetadata{
		"b.jpg": {ContentType: "image/jpeg"},
	}}
	proc := &fakeProcessor{}
	var out bytes.Buffer
	h := &handler{store: store, processor: proc, namespace: "Test", metrics: &out}

	if err := h.handle(context.Background(), s3Event("bucket", "%zz", "missing.jpg", "b.jpg")); err != nil {
		t.Fatalf("handle() = %v, want nil", err)
	}
	if len(proc.objects) != 1 || proc.objects[0].Key != "b.jpg" {
		t.Errorf("processed = %+v, want only b.jpg", proc.objects)
	}
}

func TestOutcomeOf(t *testing.T) {
	ok := resize.Result{Success: true}
	bad := resize.Result{}

	tests := []struct {
		name   string
		report *resize.Report
		want   string
	}{
		{"skipped", &resize.Report{SkipReason: resize.SkipNotImage}, outcomeSkipped},
		{"all ok", &resize.Report{Results: []resize.Result{ok, ok}}, outcomeResized},
		{"partial", &resize.Report{Results: []resize.Result{ok, bad}}, outcomePartial},
		{"all failed", &resize.Report{Results: []resize.Result{bad, bad}}, outcomeFailed},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.report); got != tt.want {
			t.Errorf("outcomeOf(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEmitMetrics(t *testing.T) {
	var out bytes.Buffer
	h := &handler{namespace: "ResizeImages", metrics: &out}

	report := &resize.Report{
		Key:             "a.jpg",
		Results:         []resize.Result{{Success: true}, {Success: true}, {}},
		OriginalDeleted: false,
	}
	h.emit("a.jpg", report, outcomeOf(report))

	docs := metricDocs(t, &out)
	if len(docs) != 1 {
		t.Fatalf("got %d metric docs, want 1", len(docs))
	}
	doc := docs[0]
	if doc["Outcome"] != outcomePartial {
		t.Errorf("Outcome = %v, want partial", doc["Outcome"])
	}
	if doc["SizesResized"] != float64(2) || doc["SizesFailed"] != float64(1) {
		t.Errorf("SizesResized/SizesFailed = %v/%v, want 2/1", doc["SizesResized"], doc["SizesFailed"])
	}
	if doc["key"] != "a.jpg" {
		t.Errorf("key = %v, want a.jpg", doc["key"])
	}
}
