// Package cache implements the digest-based build cache: given a
// package's ordered build inputs and its previously recorded manifest, it
// decides whether the existing output archive can be reused, hashing as
// few inputs as it can get away with before finding a reason to rebuild.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/oxidecomputer/zonepkg/internal/digest"
	"github.com/oxidecomputer/zonepkg/internal/input"
)

// InputDigest pairs a single build input with the digest of the host file
// it read from, if any. In-memory inputs (AddInMemoryFile, AddDirectory)
// carry no digest and are compared by value alone.
type InputDigest struct {
	Input  input.BuildInput `json:"input"`
	Digest *digest.Digest   `json:"digest,omitempty"`
}

// ArtifactManifest records everything needed to decide, without rebuilding,
// whether a previously produced output archive is still valid: the exact
// ordered inputs that produced it, each input's content digest, and the
// output path it describes.
//
// DigestAlgorithm records which algorithm every digest in Inputs was
// computed with. All digests in one manifest are always the same
// algorithm; recording it explicitly means a manifest written under one
// algorithm never silently "hits" after the default algorithm changes,
// since two manifests with the same hex digests but different declared
// algorithms still compare unequal.
type ArtifactManifest struct {
	Inputs          []InputDigest    `json:"inputs"`
	OutputPath      string           `json:"output_path"`
	DigestAlgorithm digest.Algorithm `json:"digest_algorithm"`
}

// Equal reports whether two manifests are identical in every field, the
// final hard-stop comparison after the individual input/digest checks.
func (m *ArtifactManifest) Equal(other *ArtifactManifest) bool {
	if m.OutputPath != other.OutputPath || m.DigestAlgorithm != other.DigestAlgorithm || len(m.Inputs) != len(other.Inputs) {
		return false
	}
	for i := range m.Inputs {
		a, b := m.Inputs[i], other.Inputs[i]
		if !a.Input.Equal(b.Input) {
			return false
		}
		if (a.Digest == nil) != (b.Digest == nil) {
			return false
		}
		if a.Digest != nil && !a.Digest.Equal(*b.Digest) {
			return false
		}
	}
	return true
}

// readManifestFrom reads and parses the manifest JSON file at path. A
// missing file and a corrupt file are both reported as cache misses by the
// caller, per the respective miss-reason strings it attaches.
func readManifestFrom(path string) (*ArtifactManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m ArtifactManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// writeManifestTo serializes m as JSON to path, staging through a
// temporary file in the same directory and renaming into place so a
// crashed or canceled build never leaves a half-written manifest where
// the next Lookup will read it.
func writeManifestTo(path string, m *ArtifactManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
