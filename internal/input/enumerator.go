package input

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/target"
	"github.com/oxidecomputer/zonepkg/internal/zoneimage"
)

// blobDir is the directory component under which downloaded blobs are
// placed inside the archive: /opt/oxide/<service>/blob in a zone image,
// blob/ in a tarball. The host download tree does not use it.
const blobDir = "blob"

// Enumerator walks a package definition into the ordered BuildInput
// sequence that is both the sole cache key and the sole archive script.
type Enumerator struct {
	// DownloadDir is where remote blobs are staged before being added to
	// the archive, under one subdirectory per service.
	DownloadDir string
}

// Enumerate produces the ordered build inputs for pkg, named name, built
// for target t, given the output directory the resulting archive (and any
// composite component archives) will live in.
func (e *Enumerator) Enumerate(pkg config.Package, name string, t *target.Target, outputDir string, version string) (Builds, error) {
	var b Builds

	zoned := pkg.Output.Type == config.OutputZone

	manifestInput, err := versionInput(pkg, name, version, zoned)
	if err != nil {
		return nil, err
	}
	b = append(b, manifestInput)

	switch pkg.Source.Type {
	case config.SourceLocal:
		pathInputs, err := e.enumeratePaths(pkg, t, zoned)
		if err != nil {
			return nil, err
		}
		b = append(b, pathInputs...)

		rustInputs, err := enumerateRust(pkg, zoned)
		if err != nil {
			return nil, err
		}
		b = append(b, rustInputs...)

		blobInputs, err := e.enumerateBlobs(pkg, zoned)
		if err != nil {
			return nil, err
		}
		b = append(b, blobInputs...)

	case config.SourceComposite:
		for _, componentFile := range pkg.Source.Packages {
			b = append(b, AddPackage(filepath.Join(outputDir, componentFile)))
		}

	case config.SourcePrebuilt, config.SourceManual:
		return nil, fmt.Errorf("input: cannot enumerate inputs for a %s package; it is never built through this path", pkg.Source.Type)

	default:
		return nil, fmt.Errorf("input: unknown source type %q", pkg.Source.Type)
	}

	return b, nil
}

func versionInput(pkg config.Package, name, version string, zoned bool) (BuildInput, error) {
	if version == "" {
		version = "0.0.0"
	}
	if zoned {
		contents := fmt.Sprintf(`{"v":"1","t":"layer","pkg":"%s","version":"%s"}`, name, version)
		return AddInMemoryFile("oxide.json", contents), nil
	}
	return AddInMemoryFile("VERSION", version), nil
}

func (e *Enumerator) enumeratePaths(pkg config.Package, t *target.Target, zoned bool) (Builds, error) {
	var b Builds

	for _, mp := range pkg.Source.Paths {
		from, err := target.Interpolate(mp.From, t)
		if err != nil {
			return nil, err
		}
		to, err := target.Interpolate(mp.To, t)
		if err != nil {
			return nil, err
		}

		if zoned {
			dirs, err := zoneimage.ParentDirs(filepath.Dir(to), true)
			if err != nil {
				return nil, err
			}
			for _, d := range dirs {
				b = append(b, AddDirectory(d))
			}
		}

		if _, err := os.Stat(from); err != nil {
			return nil, fmt.Errorf("cannot add path %q to package %q because it does not exist", from, pkg.ServiceName)
		}

		fromRoot, err := filepath.EvalSymlinks(from)
		if err != nil {
			return nil, fmt.Errorf("failed to canonicalize %q: %w", from, err)
		}

		entries, err := walkSorted(fromRoot)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			rel, err := filepath.Rel(fromRoot, entry.path)
			if err != nil {
				return nil, err
			}
			dst := filepath.Join(to, rel)

			if zoned {
				dst, err = zoneimage.ArchivePath(dst)
				if err != nil {
					return nil, err
				}
			}

			switch {
			case entry.info.IsDir():
				b = append(b, AddDirectory(dst))
			case entry.info.Mode().IsRegular():
				b = append(b, AddFile(entry.path, dst, entry.info.Size()))
			default:
				return nil, fmt.Errorf("unsupported file type %v for %q", entry.info.Mode(), entry.path)
			}
		}
	}

	return b, nil
}

type walkEntry struct {
	path string
	info os.FileInfo
}

// walkSorted walks root, following symlinks, visiting entries sorted by
// file name at each directory level for determinism. The root itself is
// included.
func walkSorted(root string) ([]walkEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	var out []walkEntry
	out = append(out, walkEntry{path: root, info: info})

	if !info.IsDir() {
		return out, nil
	}

	children, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	for _, c := range children {
		childPath := filepath.Join(root, c.Name())
		resolved, err := filepath.EvalSymlinks(childPath)
		if err != nil {
			return nil, err
		}
		sub, err := walkSorted(resolved)
		if err != nil {
			return nil, err
		}
		// The recursive walk re-roots at the resolved symlink target; fix
		// up each entry's logical path to stay under childPath.
		for _, e := range sub {
			relFromResolved, err := filepath.Rel(resolved, e.path)
			if err != nil {
				return nil, err
			}
			e.path = filepath.Join(childPath, relFromResolved)
			out = append(out, e)
		}
	}

	return out, nil
}

func enumerateRust(pkg config.Package, zoned bool) (Builds, error) {
	rust := pkg.Source.Rust
	if rust == nil {
		return nil, nil
	}

	var b Builds
	var binDir string

	if zoned {
		hostDir := filepath.Join("/opt/oxide", string(pkg.ServiceName), "bin")
		dirs, err := zoneimage.ParentDirs(hostDir, true)
		if err != nil {
			return nil, err
		}
		for _, d := range dirs {
			b = append(b, AddDirectory(d))
		}
		binDir, err = zoneimage.ArchivePath(hostDir)
		if err != nil {
			return nil, err
		}
	}

	mode := "debug"
	if rust.Release {
		mode = "release"
	}

	for _, name := range rust.BinaryNames {
		from := filepath.Join("target", mode, name)
		to := filepath.Join(binDir, name)
		info, err := os.Stat(from)
		var size int64
		if err == nil {
			size = info.Size()
		}
		b = append(b, AddFile(from, to, size))
	}

	return b, nil
}

func (e *Enumerator) enumerateBlobs(pkg config.Package, zoned bool) (Builds, error) {
	if len(pkg.Source.Blobs) == 0 && len(pkg.Source.BuildomatBlobs) == 0 {
		return nil, nil
	}

	var destDir string
	if zoned {
		destDir = filepath.Join("/opt/oxide", string(pkg.ServiceName), blobDir)
	} else {
		destDir = blobDir
	}

	var b Builds

	for _, artifact := range pkg.Source.Blobs {
		from := filepath.Join(e.DownloadDir, string(pkg.ServiceName), artifact)
		to, err := blobDest(destDir, artifact, zoned)
		if err != nil {
			return nil, err
		}
		b = append(b, AddBlob(from, to, BlobSource{Type: "s3", S3: artifact}))
	}

	for _, bb := range pkg.Source.BuildomatBlobs {
		from := filepath.Join(e.DownloadDir, string(pkg.ServiceName), bb.Artifact)
		to, err := blobDest(destDir, bb.Artifact, zoned)
		if err != nil {
			return nil, err
		}
		b = append(b, AddBlob(from, to, BlobSource{
			Type: "buildomat",
			Buildomat: BuildomatSpec{
				Repo:     bb.Repo,
				Series:   bb.Series,
				Commit:   bb.Commit,
				Artifact: bb.Artifact,
				SHA256:   bb.SHA256,
			},
		}))
	}

	return b, nil
}

func blobDest(destDir, artifact string, zoned bool) (string, error) {
	dst := filepath.Join(destDir, artifact)
	if zoned {
		return zoneimage.ArchivePath(dst)
	}
	return dst, nil
}
