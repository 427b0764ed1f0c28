// Package config holds the typed shape a parsed package manifest is
// deserialized into: the types every core component (planner, enumerator,
// cache) depends on, plus the thin TOML loader that produces them.
package config

import "github.com/oxidecomputer/zonepkg/internal/identifier"

// SourceType discriminates the tagged PackageSource union.
type SourceType string

const (
	SourceLocal     SourceType = "local"
	SourcePrebuilt  SourceType = "prebuilt"
	SourceComposite SourceType = "composite"
	SourceManual    SourceType = "manual"
)

// Source describes where a package's contents come from. It is a tagged
// union over the four PackageSource variants in the manifest TOML; Type
// selects which of the remaining fields are meaningful.
type Source struct {
	Type SourceType `toml:"type"`

	// Local fields.
	Blobs          []string        `toml:"blobs,omitempty"`
	BuildomatBlobs []BuildomatBlob `toml:"buildomat_blobs,omitempty"`
	Rust           *RustPackage    `toml:"rust,omitempty"`
	Paths          []MappedPath    `toml:"paths,omitempty"`

	// Prebuilt fields.
	Repo   string `toml:"repo,omitempty"`
	Commit string `toml:"commit,omitempty"`
	SHA256 string `toml:"sha256,omitempty"`

	// Composite fields.
	Packages []string `toml:"packages,omitempty"`
}

// RustPackage configures a package built from a compiled Rust binary.
type RustPackage struct {
	BinaryNames []string `toml:"binary_names"`
	Release     bool     `toml:"release"`
}

// MappedPath pairs an interpolated host path with its destination inside
// the archive.
type MappedPath struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// BuildomatBlob names an immutable, content-addressed artifact pulled
// from a Buildomat series build, keyed by its declared SHA-256.
type BuildomatBlob struct {
	Repo     string `toml:"repo"`
	Series   string `toml:"series"`
	Commit   string `toml:"commit"`
	Artifact string `toml:"artifact"`
	SHA256   string `toml:"sha256"`
}

// OutputType discriminates the PackageOutput union.
type OutputType string

const (
	OutputZone    OutputType = "zone"
	OutputTarball OutputType = "tarball"
)

// Output describes the archive format a package produces.
type Output struct {
	Type             OutputType `toml:"type"`
	IntermediateOnly bool       `toml:"intermediate_only,omitempty"`
}

// OutputFile returns the filename this package produces, e.g. "foo.tar.gz"
// for a zone image or "foo.tar" for a tarball.
func (o Output) OutputFile(name string) string {
	switch o.Type {
	case OutputZone:
		return name + ".tar.gz"
	default:
		return name + ".tar"
	}
}

// Package is a single manifest entry.
type Package struct {
	ServiceName    identifier.ServiceName `toml:"service_name"`
	Source         Source                 `toml:"source"`
	Output         Output                 `toml:"output"`
	OnlyForTargets map[string]string      `toml:"only_for_targets,omitempty"`
	SetupHint      string                 `toml:"setup_hint,omitempty"`
}

// OutputFile returns the filename this package produces under name.
func (p Package) OutputFile(name string) string {
	return p.Output.OutputFile(name)
}

// Config is the full set of packages declared by a manifest.
type Config struct {
	Packages map[identifier.PackageName]Package `toml:"package"`
}
