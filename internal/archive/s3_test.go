package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 implements a tiny S3 subset over http.RoundTripper so the adapter
// can be exercised without network access.
type fakeS3 struct{ objects map[string][]byte }

func (m *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		return m.list(req), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.objects[key] = body
		return xmlResponse(200, ""), nil
	case http.MethodHead:
		if body, ok := m.objects[key]; ok {
			return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(body))},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}}, nil
		}
		return &http.Response{StatusCode: 404, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	case http.MethodGet:
		if body, ok := m.objects[key]; ok {
			return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(body))},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}}, nil
		}
		return xmlResponse(404, "<?xml version=\"1.0\"?><Error><Code>NoSuchKey</Code><Message>no such key</Message></Error>"), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return &http.Response{StatusCode: 204, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	return xmlResponse(501, ""), nil
}

// list answers ListObjectsV2, truncating after the first key on the initial
// page so the adapter's continuation loop gets exercised.
func (m *fakeS3) list(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	cont := req.URL.Query().Get("continuation-token")
	var keys []string
	for k := range m.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?><ListBucketResult>")
	if cont == "" && len(keys) > 1 {
		b.WriteString("<IsTruncated>true</IsTruncated><NextContinuationToken>page2</NextContinuationToken>")
		writeContents(&b, keys[0], len(m.objects[keys[0]]))
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
		start := 0
		if cont != "" && len(keys) > 1 {
			start = 1
		}
		for _, k := range keys[start:] {
			writeContents(&b, k, len(m.objects[k]))
		}
	}
	b.WriteString("</ListBucketResult>")
	return xmlResponse(200, b.String())
}

func writeContents(b *strings.Builder, key string, size int) {
	fmt.Fprintf(b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", key, size)
}

func xmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

// decodeChunked unwraps aws-chunked upload bodies the SDK may emit.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeS3Store(t *testing.T) *S3 {
	t.Helper()
	rt := &fakeS3{objects: make(map[string][]byte)}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://fake.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return &S3{client: client, bucket: "test-bucket", prefix: "backups"}
}

func TestS3ArchiveRoundTrip(t *testing.T) {
	store := newFakeS3Store(t)
	ctx := context.Background()

	if store.Driver() != DriverS3 {
		t.Fatalf("driver = %q, want %q", store.Driver(), DriverS3)
	}

	entry, err := store.Put(ctx, "run-1/formats/icao.json", bytes.NewReader([]byte(`{"format_id":"icao"}`)))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if entry.Key != "run-1/formats/icao.json" || entry.Size == 0 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	// Retaking a backup overwrites in place.
	if _, err := store.Put(ctx, "run-1/formats/icao.json", bytes.NewReader([]byte(`{"format_id":"icao","version":2}`))); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, rc, err := store.Get(ctx, "run-1/formats/icao.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !strings.Contains(string(data), `"version":2`) {
		t.Fatalf("get returned stale body %q", data)
	}
	if got.Key != "run-1/formats/icao.json" {
		t.Fatalf("get key = %q", got.Key)
	}
}

func TestS3ArchiveGetMissing(t *testing.T) {
	store := newFakeS3Store(t)
	if _, _, err := store.Get(context.Background(), "run-9/nothing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}
}

func TestS3ArchiveListPaginatesAndStripsPrefix(t *testing.T) {
	store := newFakeS3Store(t)
	ctx := context.Background()
	for _, name := range []string{"run-1/a.json", "run-1/b.json", "run-2/a.json"} {
		if _, err := store.Put(ctx, name, bytes.NewReader([]byte("{}"))); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}

	entries, err := store.List(ctx, "run-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("list returned %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Key != "run-1/a.json" || entries[1].Key != "run-1/b.json" {
		t.Fatalf("bucket prefix leaked into keys: %+v", entries)
	}

	removed, err := store.Delete(ctx, "run-1/")
	if err != nil || removed != 2 {
		t.Fatalf("delete: removed %d err %v", removed, err)
	}
	rest, err := store.List(ctx, "")
	if err != nil || len(rest) != 1 || rest[0].Key != "run-2/a.json" {
		t.Fatalf("remaining entries %v err %v", rest, err)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatalf("expected bucket requirement error")
	}
}
