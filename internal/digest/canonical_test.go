package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalStringRoundTrip(t *testing.T) {
	d := Digest{Algorithm: Sha2, Hex: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"[:64]}
	s, err := d.CanonicalString()
	require.NoError(t, err)
	require.Equal(t, "sha256:"+d.Hex, s)

	parsed, err := ParseCanonical(s)
	require.NoError(t, err)
	require.True(t, d.Equal(parsed))
}

func TestCanonicalStringRejectsBlake3(t *testing.T) {
	d := Digest{Algorithm: Blake3, Hex: "abcd"}
	_, err := d.CanonicalString()
	require.Error(t, err)
}

func TestParseCanonicalRejectsSha512(t *testing.T) {
	_, err := ParseCanonical("sha512:" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd")
	require.Error(t, err)
}
