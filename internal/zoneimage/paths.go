// Package zoneimage implements the path-rewriting rules shared by input
// enumeration and archive writing: every payload path in a zone image
// lives under "root/", and every intermediate directory along a path must
// be materialized as its own archive entry before the leaf.
package zoneimage

import (
	"fmt"
	"path"
	"strings"
)

// ArchivePath rewrites an absolute destination path into its in-archive
// location by prepending "root/". A relative path is a build error, since
// zone outputs require absolute destination paths.
func ArchivePath(p string) (string, error) {
	if !path.IsAbs(p) {
		return "", fmt.Errorf("cannot add 'to = %s'; absolute path required", p)
	}
	trimmed := strings.TrimPrefix(p, "/")
	if trimmed == "" {
		return "root", nil
	}
	return "root/" + trimmed, nil
}

// ParentDirs returns the ordered (top-down) chain of directories from the
// filesystem root down to and including an absolute path, e.g.
// "/opt/oxide" -> ["/", "/opt", "/opt/oxide"]. When zoned is true, each
// entry is rewritten under the "root/" prefix via ArchivePath, e.g.
// ["root", "root/opt", "root/opt/oxide"].
//
// Input enumeration calls this helper only for zone outputs, so that every
// intermediate directory is present before the leaf it contains; plain
// tarball outputs get no parent-directory entries from it.
func ParentDirs(p string, zoned bool) ([]string, error) {
	if !path.IsAbs(p) {
		return nil, fmt.Errorf("cannot add 'to = %s'; absolute path required", p)
	}

	clean := path.Clean(p)
	var ancestors []string
	for {
		parent := path.Dir(clean)
		if parent == clean {
			break
		}
		ancestors = append(ancestors, clean)
		clean = parent
	}
	ancestors = append(ancestors, "/")

	// Reverse into top-down order.
	for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
		ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
	}

	if !zoned {
		return ancestors, nil
	}

	out := make([]string, len(ancestors))
	for i, a := range ancestors {
		rewritten, err := ArchivePath(a)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}
