package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oxidecomputer/zonepkg/internal/dcontext"
	"github.com/oxidecomputer/zonepkg/internal/digest"
	"github.com/oxidecomputer/zonepkg/internal/input"
)

// subdirectory is the directory, relative to the output directory, that
// manifest sidecar files are kept in.
const subdirectory = "manifest-cache"

// MissError reports that a cached artifact cannot be reused, for a wide
// variety of recoverable reasons; callers should treat it as a signal to
// rebuild, not a fatal condition.
type MissError struct {
	Reason string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("cache miss: %s", e.Reason)
}

func miss(format string, args ...any) error {
	return &MissError{Reason: fmt.Sprintf(format, args...)}
}

// IsMiss reports whether err represents a recoverable cache miss, as
// opposed to a more fundamental I/O or encoding error that should abort
// the build outright.
func IsMiss(err error) bool {
	var m *MissError
	return errors.As(err, &m)
}

// Cache tracks, alongside an output directory, a sidecar manifest per
// artifact recording the digests of the inputs that produced it.
//
// Writes to the same manifest filename are not serialized: callers must
// not schedule two builds of the same output filename into the same
// output directory concurrently.
type Cache struct {
	outputDirectory string
	cacheDirectory  string

	// Algorithm selects which digest algorithm new manifests are computed
	// with. Defaults to digest.Default when zero.
	Algorithm digest.Algorithm

	// Disabled forces every Lookup to miss, without touching the manifest
	// directory at all, for "always rebuild" workflows.
	Disabled bool
}

// New ensures the manifest cache directory exists within outputDirectory
// and returns a Cache rooted there.
func New(outputDirectory string) (*Cache, error) {
	cacheDirectory := filepath.Join(outputDirectory, subdirectory)
	if err := os.MkdirAll(cacheDirectory, 0o755); err != nil {
		return nil, err
	}
	return &Cache{outputDirectory: outputDirectory, cacheDirectory: cacheDirectory}, nil
}

func (c *Cache) manifestPath(artifactFilename string) string {
	return filepath.Join(c.cacheDirectory, artifactFilename+".json")
}

func (c *Cache) algorithm() digest.Algorithm {
	if c.Algorithm == "" {
		return digest.Default
	}
	return c.Algorithm
}

// Lookup reports whether the previously built artifactFilename remains
// valid for the given ordered inputs, returning the manifest that was
// used to validate it. Any divergence - a changed input set, a missing
// output, a changed digest - is reported as a *MissError; the first
// diverging input aborts further hashing.
func (c *Cache) Lookup(ctx context.Context, artifactFilename string, inputs input.Builds) (*ArtifactManifest, error) {
	if c.Disabled {
		return nil, miss("cache disabled")
	}

	manifest, err := readManifestFrom(c.manifestPath(artifactFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, miss("%s not found", c.manifestPath(artifactFilename))
		}
		dcontext.GetLogger(ctx).WithError(err).Warn("ignoring corrupt cache manifest")
		return nil, miss("Cannot parse manifest at %s: %v", c.manifestPath(artifactFilename), err)
	}

	if len(inputs) != len(manifest.Inputs) {
		return nil, miss("Set of inputs has changed")
	}
	for i, in := range inputs {
		if !in.Equal(manifest.Inputs[i].Input) {
			return nil, miss("Set of inputs has changed")
		}
	}

	artifactPath := filepath.Join(c.outputDirectory, artifactFilename)
	if artifactPath != manifest.OutputPath {
		return nil, miss("Output path changed from %s -> %s", manifest.OutputPath, artifactPath)
	}

	if _, err := os.Stat(artifactPath); err != nil {
		if os.IsNotExist(err) {
			return nil, miss("Output does not exist")
		}
		return nil, miss("Cannot locate output artifact: %s", err)
	}

	if filepath.Base(manifest.OutputPath) != artifactFilename {
		return nil, miss("Wrong output name in manifest (saw %s, expected %s)", filepath.Base(manifest.OutputPath), artifactFilename)
	}

	calculated, err := c.buildManifest(ctx, inputs, artifactPath, manifest)
	if err != nil {
		return nil, err
	}
	if !calculated.Equal(manifest) {
		return nil, miss("Manifests appear different")
	}

	return manifest, nil
}

// Update records a fresh manifest for artifactFilename, built from inputs,
// so a future Lookup can recognize it as unchanged. Disabled caches skip
// this entirely: there is no sidecar manifest to keep current if Lookup
// will never consult it.
func (c *Cache) Update(ctx context.Context, artifactFilename string, inputs input.Builds) (*ArtifactManifest, error) {
	if c.Disabled {
		return nil, nil
	}

	artifactPath := filepath.Join(c.outputDirectory, artifactFilename)
	manifest, err := c.buildManifestConcurrent(ctx, inputs, artifactPath)
	if err != nil {
		return nil, err
	}
	if err := writeManifestTo(c.manifestPath(artifactFilename), manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// buildManifest hashes every input that reads from a host file, in order,
// building up an ArtifactManifest. When compareWith is non-nil, each
// input's digest is checked against the corresponding entry in compareWith
// as soon as it is computed, and the first divergence returns a *MissError
// immediately rather than hashing the remaining inputs.
func (c *Cache) buildManifest(ctx context.Context, inputs input.Builds, outputPath string, compareWith *ArtifactManifest) (*ArtifactManifest, error) {
	entries := make([]InputDigest, len(inputs))

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var d *digest.Digest
		if path, ok := in.InputPath(); ok {
			computed, err := digest.HashFile(ctx, path, c.algorithm())
			if err != nil {
				return nil, err
			}
			d = &computed
		}

		entry := InputDigest{Input: in, Digest: d}

		if compareWith != nil {
			if i >= len(compareWith.Inputs) {
				return nil, miss("Differing build inputs. Saw %+v\nExpected <none>", entry)
			}
			expected := compareWith.Inputs[i]
			if !entriesEqual(entry, expected) {
				return nil, miss("Differing build inputs. Saw %+v\nExpected %+v", entry, expected)
			}
		}

		entries[i] = entry
	}

	return &ArtifactManifest{Inputs: entries, OutputPath: outputPath, DigestAlgorithm: c.algorithm()}, nil
}

// buildManifestConcurrent is buildManifest's counterpart for Update, which
// has no early-exit comparison to preserve and so can hash every input's
// host file concurrently via digest.HashFiles.
func (c *Cache) buildManifestConcurrent(ctx context.Context, inputs input.Builds, outputPath string) (*ArtifactManifest, error) {
	var paths []string
	var indices []int
	for i, in := range inputs {
		if path, ok := in.InputPath(); ok {
			paths = append(paths, path)
			indices = append(indices, i)
		}
	}

	digests, err := digest.HashFiles(ctx, paths, c.algorithm())
	if err != nil {
		return nil, err
	}

	entries := make([]InputDigest, len(inputs))
	for i, in := range inputs {
		entries[i] = InputDigest{Input: in}
	}
	for j, i := range indices {
		d := digests[j]
		entries[i].Digest = &d
	}

	return &ArtifactManifest{Inputs: entries, OutputPath: outputPath, DigestAlgorithm: c.algorithm()}, nil
}

func entriesEqual(a, b InputDigest) bool {
	if !a.Input.Equal(b.Input) {
		return false
	}
	if (a.Digest == nil) != (b.Digest == nil) {
		return false
	}
	if a.Digest != nil && !a.Digest.Equal(*b.Digest) {
		return false
	}
	return true
}
