// Package archive assembles an ordered input.Builds sequence into a
// deterministic tar, or gzip-wrapped tar, stream suitable for a zone
// image or plain tarball output.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/oxidecomputer/zonepkg/internal/blob"
	"github.com/oxidecomputer/zonepkg/internal/input"
)

// fileMode and dirMode are the deterministic, uid/gid/mtime-free modes
// every tar entry is written with, so two builds from identical inputs
// produce byte-identical archives.
const (
	fileMode = 0o644
	dirMode  = 0o755
)

// Writer appends an ordered input.Builds sequence to a tar (optionally
// gzip-wrapped) stream, applying zone-image placement rules as it goes.
type Writer struct {
	tw     *tar.Writer
	closer io.Closer
	gz     *gzip.Writer

	// Fetcher resolves AddBlob inputs to a local file before they are
	// appended.
	Fetcher *blob.Fetcher
}

// Create opens outputPath for writing and returns a Writer. When gzipped is
// true, the tar stream is wrapped in a fast-compression gzip writer,
// matching a zone image's format; otherwise the tar stream is written
// uncompressed, matching a plain tarball.
func Create(outputPath string, gzipped bool) (*Writer, error) {
	f, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot create archive %q: %w", outputPath, err)
	}

	w := &Writer{}
	if gzipped {
		gz, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
		if err != nil {
			f.Close()
			return nil, err
		}
		w.gz = gz
		w.tw = tar.NewWriter(gz)
		w.closer = f
	} else {
		w.tw = tar.NewWriter(f)
		w.closer = f
	}

	return w, nil
}

// Close finalizes the tar stream (and gzip wrapper, if any) and closes the
// underlying file.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		return err
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return err
		}
	}
	return w.closer.Close()
}

// WriteAll drains builds into the archive in order. Blocking tar/gzip
// operations run synchronously here; callers serving many concurrent
// package builds should invoke WriteAll from a dedicated goroutine so a
// slow archive write never stalls sibling work.
func (w *Writer) WriteAll(ctx context.Context, builds input.Builds) error {
	for _, in := range builds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeOne(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeOne(ctx context.Context, in input.BuildInput) error {
	switch in.Kind {
	case input.KindAddInMemoryFile:
		return w.writeInMemoryFile(in.DstPath, in.Contents)
	case input.KindAddDirectory:
		return w.writeDirectory(in.TargetDir)
	case input.KindAddFile:
		return w.writeFile(in.From, in.To)
	case input.KindAddBlob:
		return w.writeBlob(ctx, in)
	case input.KindAddPackage:
		return w.writePackage(in.PackagePath)
	default:
		return fmt.Errorf("archive: unknown build input kind %q", in.Kind)
	}
}

func (w *Writer) writeInMemoryFile(dst, contents string) error {
	hdr := &tar.Header{
		Name:     dst,
		Mode:     fileMode,
		Size:     int64(len(contents)),
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: writing header for %q: %w", dst, err)
	}
	_, err := io.WriteString(w.tw, contents)
	return err
}

func (w *Writer) writeDirectory(dst string) error {
	name := dst
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	hdr := &tar.Header{
		Name:     name,
		Mode:     dirMode,
		Typeflag: tar.TypeDir,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: writing directory %q: %w", dst, err)
	}
	return nil
}

func (w *Writer) writeFile(from, to string) error {
	f, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("archive: failed to add file %q to %q: %w", from, to, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr := &tar.Header{
		Name:     to,
		Mode:     fileMode,
		Size:     info.Size(),
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: writing header for %q: %w", to, err)
	}
	_, err = io.Copy(w.tw, f)
	return err
}

func (w *Writer) writeBlob(ctx context.Context, in input.BuildInput) error {
	if w.Fetcher == nil {
		return fmt.Errorf("archive: no blob fetcher configured for %q", in.From)
	}
	if err := os.MkdirAll(filepath.Dir(in.From), 0o755); err != nil {
		return err
	}
	if err := w.Fetcher.Fetch(ctx, in.BlobSource, in.From); err != nil {
		return err
	}
	return w.writeFile(in.From, in.To)
}

// writePackage unpacks a previously built component zone image (a gzipped
// tar whose entries are all prefixed "root/", save for its leading
// oxide.json descriptor) and re-appends its contents into this archive,
// flattening the component's "root/" prefix into this archive's
// "root/"-aware layout. This is how composite packages merge their
// dependencies' payloads.
func (w *Writer) writePackage(componentPath string) error {
	f, err := os.Open(componentPath)
	if err != nil {
		return fmt.Errorf("archive: cannot open component package %q: %w", componentPath, err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("archive: missing gzip header from %q; composite packages can currently only consist of zone images: %w", componentPath, err)
	}
	defer gzr.Close()

	tmp, err := os.MkdirTemp("", "zonepkg-component-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("archive: reading component %q: %w", componentPath, err)
		}

		entryPath := hdr.Name
		if entryPath == "oxide.json" {
			continue
		}

		stripped := strings.TrimPrefix(entryPath, "root/")
		stripped = strings.TrimSuffix(stripped, "/")
		if stripped == "" {
			continue
		}

		unpackPath := filepath.Join(tmp, filepath.FromSlash(stripped))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(unpackPath, 0o755); err != nil {
				return err
			}
			if err := w.writeDirectory(path.Clean(entryPath)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(unpackPath), 0o755); err != nil {
				return err
			}
			out, err := os.Create(unpackPath)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()

			if err := w.writeFile(unpackPath, entryPath); err != nil {
				return err
			}
		default:
			return fmt.Errorf("archive: unsupported entry type in component %q: %v", componentPath, hdr.Typeflag)
		}
	}

	return nil
}
