// Package target describes what platform and configuration a build is
// deploying to, as a sorted key/value map, and implements the {{key}}
// substitution applied to manifest paths before they are used.
package target

import (
	"fmt"
	"sort"
	"strings"
)

// Target is a set of key/value pairs selecting which packages a build
// includes and supplying values for path interpolation. Keys render and
// compare in sorted order.
type Target struct {
	kvs map[string]string
}

// New returns an empty Target, which includes every package that does
// not restrict itself with only_for_targets.
func New() *Target {
	return &Target{kvs: map[string]string{}}
}

// Parse reads a target from its rendered form: whitespace-separated
// key=value tokens. A token without '=' is an error.
func Parse(s string) (*Target, error) {
	t := New()
	for _, kv := range strings.Fields(s) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("Cannot parse key-value pair out of '%s'", kv)
		}
		t.kvs[k] = v
	}
	return t, nil
}

// Set adds or replaces a key.
func (t *Target) Set(key, value string) {
	t.kvs[key] = value
}

// Get looks up a key.
func (t *Target) Get(key string) (string, bool) {
	v, ok := t.kvs[key]
	return v, ok
}

// Includes reports whether a package restricted to onlyForTargets should
// be built for this target: true iff every listed key is present here
// with an equal value. A package with no restrictions is always
// included.
func (t *Target) Includes(onlyForTargets map[string]string) bool {
	for k, v := range onlyForTargets {
		if tv, ok := t.kvs[k]; !ok || tv != v {
			return false
		}
	}
	return true
}

// String renders the target as "k1=v1 k2=v2 ..." with keys sorted, the
// same form Parse accepts.
func (t *Target) String() string {
	keys := make([]string, 0, len(t.kvs))
	for k := range t.kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(t.kvs[k])
	}
	return b.String()
}

// Interpolate substitutes every {{key}} placeholder in s with the
// target's value for that key, scanning left to right. The scan is
// greedy from each "{{" to the next "}}", so a key may itself contain
// "{{". A placeholder with no closing "}}", or a key absent from the
// target, is an error.
func Interpolate(s string, t *Target) (string, error) {
	const start = "{{"
	const end = "}}"

	input := s
	var output strings.Builder

	for {
		subIdx := strings.Index(input, start)
		if subIdx < 0 {
			break
		}
		output.WriteString(input[:subIdx])
		input = input[subIdx+len(start):]

		endIdx := strings.Index(input, end)
		if endIdx < 0 {
			return "", fmt.Errorf("Missing closing '%s' character in '%s'", end, s)
		}
		key := input[:endIdx]
		value, ok := t.Get(key)
		if !ok {
			return "", fmt.Errorf("Key '%s' not found in target, but required in '%s'", key, s)
		}
		output.WriteString(value)
		input = input[endIdx+len(end):]
	}
	output.WriteString(input)
	return output.String(), nil
}
