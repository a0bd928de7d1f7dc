package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"inventory-sync/models"
)

var sampleGroups = []models.UnclassifiedGroup{
	{RawCategory: "캠핑카", RawManufacturer: "현대", Reason: models.DropUnknownCategory, Count: 2, SampleIDs: []string{"a", "b"}},
	{RawCategory: "SUV", RawManufacturer: "맥라렌", Reason: models.DropUnknownManufacturer, Count: 1, SampleIDs: []string{"c"}},
}

func TestCSVWriterWritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVStreamWriter(&buf)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteUnclassified(sampleGroups); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3\n%s", len(lines), buf.String())
	}
	if lines[0] != "raw_category,raw_manufacturer,reason,count,sample_ids" {
		t.Errorf("header: got %q", lines[0])
	}
	if lines[1] != "캠핑카,현대,unknown_category,2,a b" {
		t.Errorf("row: got %q", lines[1])
	}
}

type fakePutter struct {
	bucket, key string
	body        []byte
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ExporterUploadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "unclassified.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteUnclassified(sampleGroups); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	fake := &fakePutter{}
	key, err := NewS3ExporterWithClient(fake, "reports-bucket", "reports").UploadFile(context.Background(), path, "run-1.csv")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key != "reports/run-1.csv" || fake.key != key || fake.bucket != "reports-bucket" {
		t.Errorf("got bucket=%q key=%q", fake.bucket, fake.key)
	}

	want, _ := os.ReadFile(path)
	if !bytes.Equal(fake.body, want) {
		t.Error("uploaded body differs from the file")
	}
}
