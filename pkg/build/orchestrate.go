package build

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/dcontext"
	"github.com/oxidecomputer/zonepkg/internal/identifier"
	"github.com/oxidecomputer/zonepkg/internal/plan"
)

// BuildAll builds every package named across batches, running every
// package within a batch concurrently and waiting for the whole batch to
// finish before starting the next one, so composite packages never start
// before the components they depend on. Every failure within a batch is
// collected rather than abandoning sibling builds at the first error, so
// one broken package doesn't hide problems with its neighbors.
func (b *Builder) BuildAll(ctx context.Context, packages map[identifier.PackageName]config.Package, batches []plan.Batch) error {
	for _, batch := range batches {
		var wg sync.WaitGroup
		var mu sync.Mutex
		var errs *multierror.Error

		for _, name := range batch {
			name := name
			pkg := packages[name]

			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := b.Build(ctx, string(name), pkg); err != nil {
					dcontext.GetLoggerWithField(ctx, "package", name).WithError(err).Error("package build failed")
					mu.Lock()
					errs = multierror.Append(errs, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if err := errs.ErrorOrNil(); err != nil {
			return err
		}
	}
	return nil
}
