package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/identifier"
	"github.com/oxidecomputer/zonepkg/internal/target"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestEnumerateZonePackageOfLooseFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "contents.txt"), "hello")
	writeFile(t, filepath.Join(dir, "single-file.txt"), "world")

	svc, err := identifier.NewServiceName("my-service")
	require.NoError(t, err)

	pkg := config.Package{
		ServiceName: svc,
		Output:      config.Output{Type: config.OutputZone},
		Source: config.Source{
			Type: config.SourceLocal,
			Paths: []config.MappedPath{
				{From: dir, To: "/opt/oxide/my-service"},
			},
		},
	}

	e := &Enumerator{}
	b, err := e.Enumerate(pkg, "my-service", target.New(), "/out", "")
	require.NoError(t, err)

	var kinds []string
	for _, in := range b {
		switch in.Kind {
		case KindAddInMemoryFile:
			kinds = append(kinds, in.DstPath)
		case KindAddDirectory:
			kinds = append(kinds, in.TargetDir)
		case KindAddFile:
			kinds = append(kinds, in.To)
		}
	}

	require.Equal(t, []string{
		"oxide.json",
		"root",
		"root/opt",
		"root/opt/oxide",
		"root/opt/oxide/my-service",
		"root/opt/oxide/my-service/contents.txt",
		"root/opt/oxide/my-service/single-file.txt",
	}, kinds)
}

func TestEnumerateTarballFirstEntryIsVersion(t *testing.T) {
	svc, err := identifier.NewServiceName("test-service")
	require.NoError(t, err)

	pkg := config.Package{
		ServiceName: svc,
		Output:      config.Output{Type: config.OutputTarball},
		Source:      config.Source{Type: config.SourceLocal},
	}

	e := &Enumerator{}
	b, err := e.Enumerate(pkg, "test-service", target.New(), "/out", "")
	require.NoError(t, err)
	require.Equal(t, KindAddInMemoryFile, b[0].Kind)
	require.Equal(t, "VERSION", b[0].DstPath)
	require.Equal(t, "0.0.0", b[0].Contents)
}

func TestEnumerateMissingPathFails(t *testing.T) {
	svc, _ := identifier.NewServiceName("svc")
	pkg := config.Package{
		ServiceName: svc,
		Output:      config.Output{Type: config.OutputZone},
		Source: config.Source{
			Type:  config.SourceLocal,
			Paths: []config.MappedPath{{From: "/does/not/exist", To: "/opt/oxide/svc"}},
		},
	}
	e := &Enumerator{}
	_, err := e.Enumerate(pkg, "svc", target.New(), "/out", "")
	require.Error(t, err)
}

func TestEnumerateCompositeReferencesComponentOutputs(t *testing.T) {
	svc, _ := identifier.NewServiceName("composite")
	pkg := config.Package{
		ServiceName: svc,
		Output:      config.Output{Type: config.OutputZone},
		Source: config.Source{
			Type:     config.SourceComposite,
			Packages: []string{"pkg-1.tar.gz", "pkg-2.tar.gz"},
		},
	}
	e := &Enumerator{}
	b, err := e.Enumerate(pkg, "composite", target.New(), "/out", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/out", "pkg-1.tar.gz"), b[1].PackagePath)
	require.Equal(t, filepath.Join("/out", "pkg-2.tar.gz"), b[2].PackagePath)
}

func TestEnumeratePrebuiltFails(t *testing.T) {
	svc, _ := identifier.NewServiceName("svc")
	pkg := config.Package{
		ServiceName: svc,
		Output:      config.Output{Type: config.OutputZone},
		Source:      config.Source{Type: config.SourcePrebuilt},
	}
	e := &Enumerator{}
	_, err := e.Enumerate(pkg, "svc", target.New(), "/out", "")
	require.Error(t, err)
}
