// Package digest computes content digests of build inputs for the cache.
// It mirrors the shape of a classic alg:hex digest type, but is encoded as
// a tagged enum (Sha2 or Blake3) so that a manifest written with one
// algorithm never silently compares equal to one written with another.
package digest

import (
	"encoding/json"
	"fmt"
)

// Algorithm identifies which hash function produced a Digest.
type Algorithm string

const (
	// Sha2 identifies SHA-256 digests.
	Sha2 Algorithm = "Sha2"
	// Blake3 identifies BLAKE3 digests, the default algorithm.
	Blake3 Algorithm = "Blake3"
)

// Digest is a tagged hex-encoded content digest.
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

// String renders the digest as "alg:hex".
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.Algorithm, d.Hex)
}

// MarshalJSON renders the digest as a single-key object keyed by the
// variant name, e.g. {"Blake3":"<hex>"}.
func (d Digest) MarshalJSON() ([]byte, error) {
	switch d.Algorithm {
	case Sha2:
		return json.Marshal(struct {
			Sha2 string `json:"Sha2"`
		}{d.Hex})
	case Blake3:
		return json.Marshal(struct {
			Blake3 string `json:"Blake3"`
		}{d.Hex})
	default:
		return nil, fmt.Errorf("digest: unknown algorithm %q", d.Algorithm)
	}
}

// UnmarshalJSON parses the externally-tagged single-key object form.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if hex, ok := raw["Sha2"]; ok {
		d.Algorithm, d.Hex = Sha2, hex
		return nil
	}
	if hex, ok := raw["Blake3"]; ok {
		d.Algorithm, d.Hex = Blake3, hex
		return nil
	}
	return fmt.Errorf("digest: unrecognized encoding %s", string(data))
}

// Equal reports whether two digests have the same algorithm and hex value.
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && d.Hex == other.Hex
}
