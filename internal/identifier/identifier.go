// Package identifier implements the validated name newtypes shared by
// packages, services, and target presets.
package identifier

import "fmt"

// InvalidReason enumerates why a candidate identifier was rejected.
type InvalidReason int

const (
	// Empty means the input string had zero length.
	Empty InvalidReason = iota
	// StartsWithNonLetter means the first byte was not an ASCII letter.
	StartsWithNonLetter
	// ContainsInvalidCharacters means some byte after the first was not
	// ASCII alphanumeric, '_', or '-'.
	ContainsInvalidCharacters
)

func (r InvalidReason) String() string {
	switch r {
	case Empty:
		return "identifier must be non-empty"
	case StartsWithNonLetter:
		return "identifier must start with a letter"
	case ContainsInvalidCharacters:
		return "identifier must contain only letters, numbers, underscores, and hyphens"
	default:
		return "invalid identifier"
	}
}

// InvalidError reports why a string failed identifier validation.
type InvalidError struct {
	Input  string
	Reason InvalidReason
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Input, e.Reason)
}

// validate applies the shared identifier rule: non-empty, first byte ASCII
// letter, every byte ASCII alphanumeric/'_'/'-'.
func validate(s string) error {
	if len(s) == 0 {
		return &InvalidError{Input: s, Reason: Empty}
	}

	b := s[0]
	if !isASCIILetter(b) {
		return &InvalidError{Input: s, Reason: StartsWithNonLetter}
	}

	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(isASCIILetter(c) || isASCIIDigit(c) || c == '_' || c == '-') {
			return &InvalidError{Input: s, Reason: ContainsInvalidCharacters}
		}
	}

	return nil
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// PackageName is a validated package identifier.
type PackageName string

// NewPackageName validates s and returns it as a PackageName.
func NewPackageName(s string) (PackageName, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return PackageName(s), nil
}

func (n PackageName) String() string { return string(n) }

// UnmarshalText lets PackageName be used as a TOML/JSON map key.
func (n *PackageName) UnmarshalText(text []byte) error {
	name, err := NewPackageName(string(text))
	if err != nil {
		return err
	}
	*n = name
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (n PackageName) MarshalText() ([]byte, error) {
	return []byte(n), nil
}

// ServiceName is a validated service identifier.
type ServiceName string

// NewServiceName validates s and returns it as a ServiceName.
func NewServiceName(s string) (ServiceName, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return ServiceName(s), nil
}

func (n ServiceName) String() string { return string(n) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *ServiceName) UnmarshalText(text []byte) error {
	name, err := NewServiceName(string(text))
	if err != nil {
		return err
	}
	*n = name
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (n ServiceName) MarshalText() ([]byte, error) {
	return []byte(n), nil
}

// PresetName is a validated target-preset identifier.
type PresetName string

// NewPresetName validates s and returns it as a PresetName.
func NewPresetName(s string) (PresetName, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return PresetName(s), nil
}

func (n PresetName) String() string { return string(n) }
