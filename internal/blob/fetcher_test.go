package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oxidecomputer/zonepkg/internal/input"
)

func TestFetchS3DownloadsWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := &Fetcher{BaseS3URL: srv.URL}
	dest := filepath.Join(t.TempDir(), "out.bin")

	err := f.Fetch(context.Background(), input.BlobSource{Type: "s3", S3: "key"}, dest)
	require.NoError(t, err)

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "hello", string(contents))
}

func TestFetchS3SkipsWhenUpToDate(t *testing.T) {
	modTime := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	getCalled := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		w.Header().Set("Last-Modified", modTime.Format(http.TimeFormat))
		if r.Method == http.MethodGet {
			getCalled = true
			w.Write([]byte("hello"))
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(dest, []byte("hello"), 0o644))
	require.NoError(t, os.Chtimes(dest, modTime, modTime))

	f := &Fetcher{BaseS3URL: srv.URL}
	err := f.Fetch(context.Background(), input.BlobSource{Type: "s3", S3: "key"}, dest)
	require.NoError(t, err)
	require.False(t, getCalled, "expected no GET request when local file is already current")
}

func TestFetchBuildomatSkipsOnMatchingDigest(t *testing.T) {
	contents := []byte("artifact-bytes")
	sum := sha256.Sum256(contents)
	digest := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(dest, contents, 0o644))

	f := &Fetcher{BuildomatURL: srv.URL}
	err := f.Fetch(context.Background(), input.BlobSource{
		Type: "buildomat",
		Buildomat: input.BuildomatSpec{
			Repo: "repo", Series: "series", Commit: "abc", Artifact: "artifact.bin", SHA256: digest,
		},
	}, dest)
	require.NoError(t, err)
}

func TestFetchBuildomatDownloadsAndVerifies(t *testing.T) {
	contents := []byte("artifact-bytes")
	sum := sha256.Sum256(contents)
	digest := hex.EncodeToString(sum[:])

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(contents)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")

	f := &Fetcher{BuildomatURL: srv.URL}
	err := f.Fetch(context.Background(), input.BlobSource{
		Type: "buildomat",
		Buildomat: input.BuildomatSpec{
			Repo: "repo", Series: "series", Commit: "abc", Artifact: "artifact.bin", SHA256: digest,
		},
	}, dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, contents, got)
	require.Equal(t, "/public/file/oxidecomputer/repo/series/abc/artifact.bin", gotPath)
}

func TestFetchBuildomatAcceptsCanonicalDigestForm(t *testing.T) {
	contents := []byte("artifact-bytes")
	sum := sha256.Sum256(contents)
	canonical := "sha256:" + hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(dest, contents, 0o644))

	f := &Fetcher{BuildomatURL: srv.URL}
	err := f.Fetch(context.Background(), input.BlobSource{
		Type: "buildomat",
		Buildomat: input.BuildomatSpec{
			Repo: "repo", Series: "series", Commit: "abc", Artifact: "artifact.bin", SHA256: canonical,
		},
	}, dest)
	require.NoError(t, err)
}

func TestFetchBuildomatMismatchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wrong-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")

	f := &Fetcher{BuildomatURL: srv.URL}
	err := f.Fetch(context.Background(), input.BlobSource{
		Type: "buildomat",
		Buildomat: input.BuildomatSpec{
			Repo: "repo", Series: "series", Commit: "abc", Artifact: "artifact.bin",
			SHA256: "0000000000000000000000000000000000000000000000000000000000000000"[:64],
		},
	}, dest)
	require.Error(t, err)
}
