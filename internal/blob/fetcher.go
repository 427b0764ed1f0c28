// Package blob downloads the remote artifacts referenced by AddBlob build
// inputs, reusing a previously downloaded copy whenever the remote source
// reports it is unchanged.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/oxidecomputer/zonepkg/internal/dcontext"
	"github.com/oxidecomputer/zonepkg/internal/digest"
	"github.com/oxidecomputer/zonepkg/internal/input"
)

// Fetcher downloads blobs named by a BlobSource to a local destination
// path, skipping the transfer when the destination already holds the
// current content.
type Fetcher struct {
	// BaseS3URL is the bucket root remote blobs are fetched from, e.g.
	// "https://oxide-omicron-build.s3.amazonaws.com". Joined with a blob's
	// S3 key to form the request URL.
	BaseS3URL string

	// BuildomatURL is the Buildomat artifact-store root, joined with a
	// BuildomatSpec's repo/series/commit/artifact path segments.
	BuildomatURL string

	client *retryablehttp.Client
}

func (f *Fetcher) httpClient() *retryablehttp.Client {
	if f.client == nil {
		f.client = retryablehttp.NewClient()
		f.client.RetryMax = 3
		f.client.Logger = nil
	}
	return f.client
}

// Fetch ensures dest holds the content named by source, downloading it if
// dest is missing or stale.
func (f *Fetcher) Fetch(ctx context.Context, source input.BlobSource, dest string) error {
	switch source.Type {
	case "s3":
		return f.fetchS3(ctx, source.S3, dest)
	case "buildomat":
		return f.fetchBuildomat(ctx, source.Buildomat, dest)
	default:
		return fmt.Errorf("blob: unknown source type %q", source.Type)
	}
}

// fetchS3 downloads an S3-style object, treating it as unchanged when the
// destination's size and mtime already match the object's reported
// Content-Length and Last-Modified header.
func (f *Fetcher) fetchS3(ctx context.Context, key, dest string) error {
	url := f.BaseS3URL + "/" + key

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to download blob: %s: %w", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download blob: %s: unexpected status %s", url, resp.Status)
	}

	lengthHeader := resp.Header.Get("Content-Length")
	if lengthHeader == "" {
		return fmt.Errorf("failed to download blob: %s: missing Content-Length header", url)
	}
	remoteLen, err := strconv.ParseInt(lengthHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to download blob: %s: malformed Content-Length header: %w", url, err)
	}

	modifiedHeader := resp.Header.Get("Last-Modified")
	if modifiedHeader == "" {
		return fmt.Errorf("failed to download blob: %s: missing Last-Modified header", url)
	}
	remoteModified, err := http.ParseTime(modifiedHeader)
	if err != nil {
		return fmt.Errorf("failed to download blob: %s: unparseable Last-Modified header: %w", url, err)
	}

	if info, statErr := os.Stat(dest); statErr == nil {
		if info.Size() == remoteLen && info.ModTime().Equal(remoteModified) {
			dcontext.GetLoggerWithField(ctx, "key", key).Debug("blob up to date, skipping download")
			return nil
		}
	}

	if err := f.download(ctx, url, dest); err != nil {
		return err
	}
	return os.Chtimes(dest, remoteModified, remoteModified)
}

// fetchBuildomat downloads a content-addressed Buildomat artifact,
// trusting the recorded SHA256 over any mtime: if the destination already
// hashes to the expected digest, the download is skipped entirely.
func (f *Fetcher) fetchBuildomat(ctx context.Context, spec input.BuildomatSpec, dest string) error {
	want := expectedSHA256(spec.SHA256)

	if want != "" {
		if matches, err := fileMatchesSHA256(dest, want); err == nil && matches {
			dcontext.GetLoggerWithField(ctx, "artifact", spec.Artifact).Debug("blob content-addressed match, skipping download")
			return nil
		}
	}

	url := path.Join(f.BuildomatURL, "public", "file", "oxidecomputer", spec.Repo, spec.Series, spec.Commit, spec.Artifact)
	url = fixupScheme(f.BuildomatURL, url)

	if err := f.download(ctx, url, dest); err != nil {
		return err
	}

	if want != "" {
		matches, err := fileMatchesSHA256(dest, want)
		if err != nil {
			return err
		}
		if !matches {
			return fmt.Errorf("blob: downloaded artifact %q does not match expected digest %s", spec.Artifact, canonicalOrHex(want))
		}
	}
	return nil
}

// expectedSHA256 normalizes a manifest's declared digest to plain hex,
// accepting either a bare hex string (as written by package.rs-derived
// manifests) or the canonical "sha256:hex" form Buildomat's own artifact
// API reports digests in.
func expectedSHA256(declared string) string {
	if declared == "" {
		return ""
	}
	if parsed, err := digest.ParseCanonical(declared); err == nil {
		return parsed.Hex
	}
	return declared
}

// canonicalOrHex renders a hex digest in the canonical "sha256:hex" form
// for error messages, falling back to the bare hex if it doesn't look like
// a valid sha256 digest.
func canonicalOrHex(hexDigest string) string {
	if s, err := (digest.Digest{Algorithm: digest.Sha2, Hex: hexDigest}).CanonicalString(); err == nil {
		return s
	}
	return hexDigest
}

// fixupScheme repairs the double-slash-collapsing that path.Join performs
// on a URL's "://" separator.
func fixupScheme(base, joined string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if len(base) >= len(scheme) && base[:len(scheme)] == scheme {
			return scheme + joined[len(scheme)-1:]
		}
	}
	return joined
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to download blob: %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download blob: %s: unexpected status %s", url, resp.Status)
	}

	tmp := dest + ".downloading"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	// A subsequent archive write reads this file's size immediately; a
	// write still sitting in the page cache when the process is killed
	// would corrupt that header, so force it to stable storage first.
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func fileMatchesSHA256(path, want string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == want, nil
}
