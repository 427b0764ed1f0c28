//go:build unix

package digest

import (
	"os"

	"golang.org/x/sys/unix"
	"lukechampine.com/blake3"
)

// hashMmap BLAKE3-hashes a file at or above largeHashSize through a
// read-only memory mapping, avoiding the buffered read loop's copies.
func hashMmap(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		h := blake3.New(32, nil)
		return h.Sum(nil), nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	defer unix.Munmap(data)

	h := blake3.New(32, nil)
	h.Write(data)
	return h.Sum(nil), nil
}
