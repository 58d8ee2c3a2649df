package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/civiclens/permit-crawler/common/models"
)

type memStorage struct {
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	m.objects[objectName] = content
	return objectName, nil
}

func (m *memStorage) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	return m.objects[objectName], nil
}

func (m *memStorage) Delete(ctx context.Context, bucket, objectName string) error {
	delete(m.objects, objectName)
	return nil
}

func TestSnapshotWritesHTMLAndMarkdown(t *testing.T) {
	storage := newMemStorage()
	a := NewArchiver(storage, "snapshots")

	p := models.Permit{PermitNumber: "BLD 24/100", City: "Oldtown", State: "CA"}
	a.Snapshot(context.Background(), "oldtown-ca", p, "<html><body><h1>Permit BLD 24/100</h1></body></html>")

	var htmlKey, mdKey string
	for key := range storage.objects {
		switch {
		case strings.HasSuffix(key, ".html"):
			htmlKey = key
		case strings.HasSuffix(key, ".md"):
			mdKey = key
		}
	}

	if htmlKey == "" || mdKey == "" {
		t.Fatalf("objects = %v, want an html and a md snapshot", storage.objects)
	}
	if !strings.Contains(htmlKey, "oldtown-ca/") {
		t.Errorf("object path %q not partitioned by site", htmlKey)
	}
	if strings.Contains(htmlKey, " ") || strings.Contains(strings.TrimPrefix(htmlKey, "snapshots/"), "BLD 24/100") {
		t.Errorf("object path %q not sanitized", htmlKey)
	}
	if !strings.Contains(string(storage.objects[mdKey]), "Permit BLD 24/100") {
		t.Errorf("markdown rendition = %q", storage.objects[mdKey])
	}
}

func TestSnapshotDisabled(t *testing.T) {
	a := NewArchiver(nil, "")
	if a.Enabled() {
		t.Fatal("archiver with no storage must be disabled")
	}
	// Must not panic.
	a.Snapshot(context.Background(), "site", models.Permit{PermitNumber: "X"}, "<html></html>")
}
