// Package stamp rewrites the embedded version of an already-built archive
// without re-running the cache or re-enumerating its inputs. The stamped
// copy is written under a "versioned/" directory next to the original, so
// the cached artifact the manifest cache knows about stays untouched.
package stamp

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oxidecomputer/zonepkg/internal/archive"
	"github.com/oxidecomputer/zonepkg/internal/input"
)

// versionedDir is the directory, relative to the archive's own directory,
// stamped copies are written to.
const versionedDir = "versioned"

// outputPath returns the stamped copy's destination for archivePath,
// creating the versioned directory if needed.
func outputPath(archivePath string) (string, error) {
	dir := filepath.Join(filepath.Dir(archivePath), versionedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(archivePath)), nil
}

// Zone rewrites a zone archive's embedded version by wrapping the
// existing archive, unmodified, as a single AddPackage input behind a
// fresh oxide.json manifest entry carrying version. It returns the path
// of the stamped copy. Stamping never touches the build cache.
func Zone(ctx context.Context, archivePath, name, version string) (string, error) {
	stamped, err := outputPath(archivePath)
	if err != nil {
		return "", err
	}

	manifestJSON := fmt.Sprintf(`{"v":"1","t":"layer","pkg":"%s","version":"%s"}`, name, version)

	w, err := archive.Create(stamped, true)
	if err != nil {
		return "", err
	}
	if err := w.WriteAll(ctx, input.Builds{
		input.AddInMemoryFile("oxide.json", manifestJSON),
		input.AddPackage(archivePath),
	}); err != nil {
		w.Close()
		os.Remove(stamped)
		return "", err
	}
	if err := w.Close(); err != nil {
		os.Remove(stamped)
		return "", err
	}

	return stamped, nil
}

// Tarball rewrites a plain tarball's embedded VERSION file: it unpacks
// the archive, discards its existing VERSION entry, re-packs the unpacked
// tree rooted at "./", and appends the new VERSION entry last. It returns
// the path of the stamped copy.
func Tarball(ctx context.Context, archivePath, version string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "zonepkg-stamp-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	names, err := unpackTarball(archivePath, tmpDir)
	if err != nil {
		return "", err
	}

	stamped, err := outputPath(archivePath)
	if err != nil {
		return "", err
	}
	w, err := archive.Create(stamped, false)
	if err != nil {
		return "", err
	}

	builds := input.Builds{input.AddDirectory(".")}
	for _, name := range names {
		if name == "VERSION" {
			continue
		}
		info, err := os.Stat(filepath.Join(tmpDir, name))
		if err != nil {
			w.Close()
			os.Remove(stamped)
			return "", err
		}
		if info.IsDir() {
			builds = append(builds, input.AddDirectory(name))
			continue
		}
		builds = append(builds, input.AddFile(filepath.Join(tmpDir, name), name, info.Size()))
	}
	builds = append(builds, input.AddInMemoryFile("VERSION", version))

	if err := w.WriteAll(ctx, builds); err != nil {
		w.Close()
		os.Remove(stamped)
		return "", err
	}
	if err := w.Close(); err != nil {
		os.Remove(stamped)
		return "", err
	}

	return stamped, nil
}

// unpackTarball extracts archivePath (an uncompressed tar) into dir,
// returning every entry name in its original order.
func unpackTarball(archivePath, dir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if isGzip(archivePath) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		names = append(names, hdr.Name)
		dest := filepath.Join(dir, filepath.FromSlash(hdr.Name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return nil, err
			}
			out, err := os.Create(dest)
			if err != nil {
				return nil, err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return nil, err
			}
			out.Close()
		default:
			return nil, fmt.Errorf("stamp: unsupported entry type in %q", archivePath)
		}
	}
	return names, nil
}

func isGzip(path string) bool {
	return filepath.Ext(path) == ".gz"
}
