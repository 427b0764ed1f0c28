package stamp

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxidecomputer/zonepkg/internal/archive"
	"github.com/oxidecomputer/zonepkg/internal/input"
)

func readTarEntries(t *testing.T, path string) (names []string, contents map[string]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tr := tar.NewReader(f)
	contents = map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		names = append(names, hdr.Name)
		contents[hdr.Name] = string(data)
	}
	return names, contents
}

func TestTarballReplacesVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.tar")
	w, err := archive.Create(path, false)
	require.NoError(t, err)
	require.NoError(t, w.WriteAll(context.Background(), input.Builds{
		input.AddInMemoryFile("VERSION", "0.0.0"),
		input.AddInMemoryFile("test-service", "binary-contents"),
	}))
	require.NoError(t, w.Close())

	stamped, err := Tarball(context.Background(), path, "3.3.3")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "versioned", "pkg.tar"), stamped)

	names, contents := readTarEntries(t, stamped)
	require.Equal(t, []string{"./", "test-service", "VERSION"}, names)
	require.Equal(t, "3.3.3", contents["VERSION"])
	require.Equal(t, "binary-contents", contents["test-service"])

	// The original archive is untouched.
	_, original := readTarEntries(t, path)
	require.Equal(t, "0.0.0", original["VERSION"])
}

func TestZoneWrapsExistingArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.tar.gz")
	w, err := archive.Create(path, true)
	require.NoError(t, err)
	require.NoError(t, w.WriteAll(context.Background(), input.Builds{
		input.AddInMemoryFile("oxide.json", `{"v":"1","t":"layer","pkg":"svc","version":"0.0.0"}`),
		input.AddInMemoryFile("root/opt/oxide/svc/file.txt", "payload"),
	}))
	require.NoError(t, w.Close())

	stamped, err := Zone(context.Background(), path, "svc", "2.0.0")
	require.NoError(t, err)

	f, err := os.Open(stamped)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	var names []string
	var manifest, fileContents string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		switch hdr.Name {
		case "oxide.json":
			manifest = string(data)
		case "root/opt/oxide/svc/file.txt":
			fileContents = string(data)
		}
	}
	require.Equal(t, "oxide.json", names[0])
	require.Equal(t, `{"v":"1","t":"layer","pkg":"svc","version":"2.0.0"}`, manifest)
	require.Equal(t, "payload", fileContents)
}
