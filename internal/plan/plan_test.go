package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/identifier"
	"github.com/oxidecomputer/zonepkg/internal/target"
)

func mustPackageName(t *testing.T, s string) identifier.PackageName {
	t.Helper()
	n, err := identifier.NewPackageName(s)
	require.NoError(t, err)
	return n
}

func TestBatchesOrdersComponentBeforeComposite(t *testing.T) {
	pkgAName := mustPackageName(t, "pkg-a")
	pkgA := config.Package{
		Source: config.Source{Type: config.SourceManual},
		Output: config.Output{Type: config.OutputTarball},
	}

	pkgBName := mustPackageName(t, "pkg-b")
	pkgB := config.Package{
		Source: config.Source{Type: config.SourceComposite, Packages: []string{pkgA.OutputFile(string(pkgAName))}},
		Output: config.Output{Type: config.OutputTarball},
	}

	p := &Planner{Packages: map[identifier.PackageName]config.Package{
		pkgAName: pkgA,
		pkgBName: pkgB,
	}}

	batches := p.Batches(target.New())
	require.Len(t, batches, 2)
	require.Equal(t, Batch{pkgAName}, batches[0])
	require.Equal(t, Batch{pkgBName}, batches[1])
}

func TestBatchesPanicsOnCyclicDependency(t *testing.T) {
	pkgAName := mustPackageName(t, "pkg-a")
	pkgBName := mustPackageName(t, "pkg-b")

	pkgA := config.Package{
		Source: config.Source{Type: config.SourceComposite, Packages: []string{"pkg-b.tar"}},
		Output: config.Output{Type: config.OutputTarball},
	}
	pkgB := config.Package{
		Source: config.Source{Type: config.SourceComposite, Packages: []string{"pkg-a.tar"}},
		Output: config.Output{Type: config.OutputTarball},
	}

	p := &Planner{Packages: map[identifier.PackageName]config.Package{
		pkgAName: pkgA,
		pkgBName: pkgB,
	}}

	require.PanicsWithValue(t, "cyclic dependency in package manifest", func() {
		p.Batches(target.New())
	})
}

func TestBatchesPanicsOnMissingDependency(t *testing.T) {
	pkgAName := mustPackageName(t, "pkg-a")
	pkgA := config.Package{
		Source: config.Source{Type: config.SourceComposite, Packages: []string{"pkg-b.tar"}},
		Output: config.Output{Type: config.OutputTarball},
	}

	p := &Planner{Packages: map[identifier.PackageName]config.Package{
		pkgAName: pkgA,
	}}

	require.PanicsWithValue(t, "Could not find a package which creates 'pkg-b.tar'", func() {
		p.Batches(target.New())
	})
}

func TestBatchesSkipsExcludedTargets(t *testing.T) {
	pkgAName := mustPackageName(t, "pkg-a")
	pkgA := config.Package{
		Source:         config.Source{Type: config.SourceManual},
		Output:         config.Output{Type: config.OutputTarball},
		OnlyForTargets: map[string]string{"image": "standard"},
	}

	p := &Planner{Packages: map[identifier.PackageName]config.Package{pkgAName: pkgA}}

	t1 := target.New()
	t1.Set("image", "trampoline")
	require.Empty(t, p.Batches(t1))

	t2 := target.New()
	t2.Set("image", "standard")
	require.Equal(t, []Batch{{pkgAName}}, p.Batches(t2))
}
