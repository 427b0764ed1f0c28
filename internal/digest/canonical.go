package digest

import (
	"fmt"

	ocidigest "github.com/opencontainers/go-digest"
)

// CanonicalString renders a Sha2 digest using the canonical OCI
// "sha256:hex" grammar, validating the hex encoding along the way. Blake3
// has no registered OCI algorithm, so only Sha2 digests have a canonical
// form.
func (d Digest) CanonicalString() (string, error) {
	if d.Algorithm != Sha2 {
		return "", fmt.Errorf("digest: %s has no OCI-canonical form", d.Algorithm)
	}
	oc := ocidigest.NewDigestFromEncoded(ocidigest.SHA256, d.Hex)
	if err := oc.Validate(); err != nil {
		return "", fmt.Errorf("digest: invalid sha256 digest %q: %w", d.Hex, err)
	}
	return oc.String(), nil
}

// ParseCanonical parses an OCI-style "sha256:hex" string, as seen in
// Buildomat artifact manifests and S3 checksum headers, into a Digest.
func ParseCanonical(s string) (Digest, error) {
	oc, err := ocidigest.Parse(s)
	if err != nil {
		return Digest{}, fmt.Errorf("digest: cannot parse %q: %w", s, err)
	}
	if oc.Algorithm() != ocidigest.SHA256 {
		return Digest{}, fmt.Errorf("digest: unsupported canonical algorithm %q", oc.Algorithm())
	}
	return Digest{Algorithm: Sha2, Hex: oc.Encoded()}, nil
}
