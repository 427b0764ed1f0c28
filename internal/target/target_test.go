package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpolateNoop(t *testing.T) {
	s, err := Interpolate("nothing to change", New())
	require.NoError(t, err)
	require.Equal(t, "nothing to change", s)
}

func TestInterpolateSingle(t *testing.T) {
	tgt := New()
	tgt.Set("key1", "value1")

	for in, want := range map[string]string{
		"{{key1}}":        "value1",
		"prefix-{{key1}}": "prefix-value1",
		"{{key1}}-suffix": "value1-suffix",
	} {
		s, err := Interpolate(in, tgt)
		require.NoError(t, err)
		require.Equal(t, want, s)
	}
}

func TestInterpolateMultiple(t *testing.T) {
	tgt := New()
	tgt.Set("key1", "value1")
	tgt.Set("key2", "value2")

	s, err := Interpolate("{{key1}}-{{key2}}", tgt)
	require.NoError(t, err)
	require.Equal(t, "value1-value2", s)
}

func TestInterpolateMissingKey(t *testing.T) {
	tgt := New()
	tgt.Set("key1", "value1")

	_, err := Interpolate("{{key3}}", tgt)
	require.EqualError(t, err, "Key 'key3' not found in target, but required in '{{key3}}'")
}

func TestInterpolateMissingClosing(t *testing.T) {
	tgt := New()
	tgt.Set("key1", "value1")

	_, err := Interpolate("{{key1", tgt)
	require.EqualError(t, err, "Missing closing '}}' character in '{{key1'")
}

func TestInterpolateGreedyKey(t *testing.T) {
	// The scan runs from the first "{{" to the next "}}", so the key may
	// itself contain "{{".
	tgt := New()
	tgt.Set("oh{{no", "value")

	s, err := Interpolate("{{oh{{no}}", tgt)
	require.NoError(t, err)
	require.Equal(t, "value", s)
}

func TestParseRoundTrip(t *testing.T) {
	tgt, err := Parse("image=standard machine=gimlet")
	require.NoError(t, err)

	v, ok := tgt.Get("image")
	require.True(t, ok)
	require.Equal(t, "standard", v)

	require.Equal(t, "image=standard machine=gimlet", tgt.String())

	again, err := Parse(tgt.String())
	require.NoError(t, err)
	require.Equal(t, tgt.String(), again.String())
}

func TestParseRejectsBareToken(t *testing.T) {
	_, err := Parse("image=standard oops")
	require.EqualError(t, err, "Cannot parse key-value pair out of 'oops'")
}

func TestIncludes(t *testing.T) {
	tgt := New()
	tgt.Set("image", "standard")
	tgt.Set("machine", "gimlet")

	require.True(t, tgt.Includes(nil))
	require.True(t, tgt.Includes(map[string]string{"image": "standard"}))
	require.True(t, tgt.Includes(map[string]string{"image": "standard", "machine": "gimlet"}))
	require.False(t, tgt.Includes(map[string]string{"image": "trampoline"}))
	require.False(t, tgt.Includes(map[string]string{"switch": "asic"}))
}
