package digest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// HashFiles computes the digest of each path concurrently, preserving the
// input order in the returned slice. The first error encountered cancels
// the remaining in-flight hashes.
func HashFiles(ctx context.Context, paths []string, alg Algorithm) ([]Digest, error) {
	digests := make([]Digest, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			d, err := HashFile(ctx, p, alg)
			if err != nil {
				return err
			}
			digests[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}
