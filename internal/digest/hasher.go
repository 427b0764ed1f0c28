package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// hashBufferSize is the buffer size used to hash smaller files.
const hashBufferSize = 16 * (1 << 10)

// largeHashSize is the file-size threshold at or above which the BLAKE3 path
// switches to memory-mapped, data-parallel hashing.
const largeHashSize = 1 << 20

// Default is the digest algorithm used when none is requested explicitly.
const Default = Blake3

// HashFile computes the digest of the file at path using alg, checking
// for context cancellation between read calls. Callers that want
// concurrency across many files should use HashFiles or run HashFile from
// their own goroutines.
func HashFile(ctx context.Context, path string, alg Algorithm) (Digest, error) {
	switch alg {
	case Sha2:
		return hashFileSha2(ctx, path)
	case Blake3, "":
		return hashFileBlake3(ctx, path)
	default:
		return Digest{}, &UnsupportedAlgorithmError{Algorithm: alg}
	}
}

// UnsupportedAlgorithmError is returned by HashFile for an unknown
// Algorithm value.
type UnsupportedAlgorithmError struct {
	Algorithm Algorithm
}

func (e *UnsupportedAlgorithmError) Error() string {
	return "digest: unsupported algorithm " + string(e.Algorithm)
}

func hashFileSha2(ctx context.Context, path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return Digest{}, err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, err
		}
	}
	return Digest{Algorithm: Sha2, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

func hashFileBlake3(ctx context.Context, path string) (Digest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Digest{}, err
	}

	if info.Size() >= largeHashSize {
		sum, err := hashMmap(path)
		if err == nil {
			return Digest{Algorithm: Blake3, Hex: hex.EncodeToString(sum)}, nil
		}
		// Fall through to the buffered path if mmap isn't available on this
		// platform or the file couldn't be mapped (e.g. it shrank under us).
	}

	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	buf := make([]byte, hashBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return Digest{}, err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, err
		}
	}
	return Digest{Algorithm: Blake3, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}
