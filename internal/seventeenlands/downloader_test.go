package seventeenlands

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

const sampleCSV = "draft_id,won,deck_Bolt\nD1,True,1\n"

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestObjectName(t *testing.T) {
	got := ObjectName("blb", "PremierDraft")
	want := "game_data_public.BLB.PremierDraft.csv.gz"
	if got != want {
		t.Errorf("ObjectName = %q, want %q", got, want)
	}
}

func TestDownloader_HTTP(t *testing.T) {
	payload := gzipBytes(t, sampleCSV)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/game_data_public.BLB.PremierDraft.csv.gz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "blb", "games.csv")
	d := NewDownloader(NewHTTPSource(server.URL, nil), "")

	n, err := d.Download(context.Background(), "blb", dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(len(sampleCSV)) {
		t.Errorf("Expected %d bytes, got %d", len(sampleCSV), n)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != sampleCSV {
		t.Errorf("Unexpected content: %q", data)
	}
}

func TestDownloader_HTTPNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "games.csv")
	d := NewDownloader(NewHTTPSource(server.URL, nil), "")

	_, err := d.Download(context.Background(), "zzz", dest)
	if !dataerr.IsNotFound(err) {
		t.Fatalf("Expected not-found error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("Destination file should not exist after a failed download")
	}
}

func TestDownloader_CorruptPayloadLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not gzip at all"))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "games.csv")
	d := NewDownloader(NewHTTPSource(server.URL, nil), "")

	if _, err := d.Download(context.Background(), "blb", dest); err == nil {
		t.Fatal("Expected error for corrupt payload")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, found %d entries", len(entries))
	}
}

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Key)
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestDownloader_S3(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		GameDataPrefix + "/game_data_public.DSK.TradDraft.csv.gz": gzipBytes(t, sampleCSV),
	}}
	src := NewS3SourceWithClient(client, "", GameDataPrefix)
	d := NewDownloader(src, "TradDraft")

	dest := filepath.Join(t.TempDir(), "games.csv")
	if _, err := d.Download(context.Background(), "dsk", dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if got := src.Location("x"); got != "s3://17lands-public/analysis_data/game_data/x" {
		t.Errorf("Unexpected location %q", got)
	}

	_, err := d.Download(context.Background(), "nope", dest)
	var nf *dataerr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if nf.Dataset != "nope" {
		t.Errorf("Expected dataset 'nope', got %q", nf.Dataset)
	}
}
