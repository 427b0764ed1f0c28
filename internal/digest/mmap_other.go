//go:build !unix

package digest

import "errors"

// hashMmap has no portable implementation outside unix; callers fall back
// to the buffered read path.
func hashMmap(path string) ([]byte, error) {
	return nil, errors.New("digest: mmap hashing unavailable on this platform")
}
