// Package build orchestrates one package's construction: enumerate its
// inputs, consult the cache, and only if necessary fetch blobs and write
// a fresh archive.
package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oxidecomputer/zonepkg/internal/archive"
	"github.com/oxidecomputer/zonepkg/internal/blob"
	"github.com/oxidecomputer/zonepkg/internal/cache"
	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/dcontext"
	"github.com/oxidecomputer/zonepkg/internal/input"
	"github.com/oxidecomputer/zonepkg/internal/target"
	"github.com/oxidecomputer/zonepkg/internal/timer"
	"github.com/oxidecomputer/zonepkg/pkg/progress"
)

// Builder composes the enumerator, cache, and archive writer needed to
// build any package in a manifest.
type Builder struct {
	OutputDir   string
	DownloadDir string
	Target      *target.Target
	Version     string
	Cache       *cache.Cache
	Fetcher     *blob.Fetcher
	Progress    progress.Progress
}

// Build constructs name's archive in OutputDir, reusing the cached
// artifact when every input is unchanged. It returns true when the
// archive was reused from cache rather than rebuilt.
func (b *Builder) Build(ctx context.Context, name string, pkg config.Package) (cacheHit bool, err error) {
	// Build runs concurrently across the packages of one batch; read the
	// shared Progress once rather than mutating the Builder.
	prog := b.Progress
	if prog == nil {
		prog = progress.NoProgress{}
	}

	bt := timer.New()
	defer bt.LogAll(dcontext.WithLogger(ctx, dcontext.GetLoggerWithField(ctx, "package", name)))

	bt.Start("enumerate inputs")
	e := &input.Enumerator{DownloadDir: b.DownloadDir}
	builds, err := e.Enumerate(pkg, name, b.Target, b.OutputDir, b.Version)
	if err != nil {
		return false, withSetupHint(err, pkg)
	}

	outputFile := pkg.OutputFile(name)

	if b.Cache != nil {
		bt.Start("cache lookup")
		if _, err := b.Cache.Lookup(ctx, outputFile, builds); err == nil {
			_ = bt.FinishWithLabel("hit")
			dcontext.GetLoggerWithField(ctx, "package", name).Info("using cached artifact")
			return true, nil
		} else if !cache.IsMiss(err) {
			return false, err
		}
		_ = bt.FinishWithLabel("miss")
	}

	prog.SetMessage(fmt.Sprintf("building %s", name))

	bt.Start("write archive")
	outputPath := filepath.Join(b.OutputDir, outputFile)
	w, err := archive.Create(outputPath, pkg.Output.Type == config.OutputZone)
	if err != nil {
		return false, withSetupHint(err, pkg)
	}
	w.Fetcher = b.Fetcher

	if err := w.WriteAll(ctx, builds); err != nil {
		w.Close()
		return false, withSetupHint(err, pkg)
	}
	if err := w.Close(); err != nil {
		return false, withSetupHint(err, pkg)
	}

	prog.Increment(1)

	if b.Cache != nil {
		bt.Start("update cache")
		// Once the archive is on disk, the cache write that records it
		// should finish even if ctx is canceled moments later (e.g. a
		// user's Ctrl-C lands right after a build completes) - an
		// interrupted write here is exactly the corrupt-manifest case
		// Lookup has to treat as a miss, not a state we should court.
		if _, err := b.Cache.Update(dcontext.DetachedContext(ctx), outputFile, builds); err != nil {
			return false, err
		}
	}

	_ = bt.Finish()
	return false, nil
}

// withSetupHint annotates a build failure with the manifest author's
// hand-written remediation hint, if one was declared for this package.
func withSetupHint(err error, pkg config.Package) error {
	if err == nil || pkg.SetupHint == "" {
		return err
	}
	return fmt.Errorf("%w\nhint: %s", err, pkg.SetupHint)
}
