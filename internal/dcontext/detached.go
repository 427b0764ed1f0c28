package dcontext

import "context"

// DetachedContext returns a context that won't be canceled when the parent
// context is canceled. This is useful for operations that need to complete
// even after the build's own context is canceled (e.g. a signal arriving
// right after an archive finishes writing) - a cache manifest write in
// particular shouldn't be cut short, since an interrupted write would land
// back on Lookup as a corrupt manifest.
//
// The detached context preserves all values from the parent context (the
// scoped logger, in particular) but removes cancellation/deadline behavior.
//
// Example usage:
//
//	detachedCtx := dcontext.DetachedContext(ctx)
//	if _, err := cache.Update(detachedCtx, name, builds); err != nil {
//		GetLogger(ctx).Errorf("cache update failed: %v", err)
//	}
func DetachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
