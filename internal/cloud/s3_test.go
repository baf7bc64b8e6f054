package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		wantErr     bool
	}{
		{"s3://cms/dict/bsfab.json", "cms", "dict/bsfab.json", false},
		{"s3://cms/a.csv", "cms", "a.csv", false},
		{"s3://cms", "", "", true},
		{"s3://cms/", "", "", true},
		{"s3://cms/dir/", "", "", true},
		{"https://cms/a.csv", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := ParseS3URL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseS3URL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseS3URL(%q) = %q, %q; want %q, %q", tt.in, bucket, key, tt.bucket, tt.key)
		}
	}
}

func TestFetchKeepsBaseName(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"cms/in/part-0001.csv.gz": []byte("payload")}}
	store := &S3Store{client: fake}

	local, cleanup, err := store.Fetch(context.Background(), "s3://cms/in/part-0001.csv.gz")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Base(local) != "part-0001.csv.gz" {
		t.Errorf("local name = %s", filepath.Base(local))
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}

	cleanup()
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Errorf("temp file still present after cleanup: %v", err)
	}
}

func TestFetchMissingObject(t *testing.T) {
	store := &S3Store{client: &fakeS3{objects: map[string][]byte{}}}
	if _, _, err := store.Fetch(context.Background(), "s3://cms/nope.csv"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestPutJSONThenGet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := &S3Store{client: fake}
	ctx := context.Background()

	in := map[string]int{"records": 3}
	if err := store.PutJSON(ctx, "s3://cms/reports/run.json", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	data, err := store.Get(ctx, "s3://cms/reports/run.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var out map[string]int
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["records"] != 3 {
		t.Errorf("records = %d", out["records"])
	}
}
