// Package input defines the ordered, typed build-input sequence that an
// Enumerator produces for a package: the single script that both the
// archive writer and the cache consume.
package input

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the BuildInput tagged union.
type Kind string

const (
	KindAddInMemoryFile Kind = "AddInMemoryFile"
	KindAddDirectory    Kind = "AddDirectory"
	KindAddFile         Kind = "AddFile"
	KindAddBlob         Kind = "AddBlob"
	KindAddPackage      Kind = "AddPackage"
)

// BlobSource describes where an AddBlob input's remote content comes from.
type BlobSource struct {
	// Type is either "s3" or "buildomat".
	Type string
	// S3 holds the S3-style object key, used when Type == "s3".
	S3 string
	// Buildomat holds the immutable artifact coordinates, used when
	// Type == "buildomat".
	Buildomat BuildomatSpec
}

// BuildomatSpec names an immutable, content-addressed Buildomat artifact.
type BuildomatSpec struct {
	Repo     string
	Series   string
	Commit   string
	Artifact string
	SHA256   string
}

// BuildInput is one entry in a package's ordered build script. Exactly one
// of its field groups is meaningful, selected by Kind.
type BuildInput struct {
	Kind Kind

	// AddInMemoryFile
	DstPath  string
	Contents string

	// AddDirectory
	TargetDir string

	// AddFile
	From string
	To   string
	Len  int64

	// AddBlob (From/To reused for the blob's path pair)
	BlobSource BlobSource

	// AddPackage
	PackagePath string
}

// AddInMemoryFile constructs a small synthesized-file input.
func AddInMemoryFile(dstPath, contents string) BuildInput {
	return BuildInput{Kind: KindAddInMemoryFile, DstPath: dstPath, Contents: contents}
}

// AddDirectory constructs an empty-directory input.
func AddDirectory(targetDir string) BuildInput {
	return BuildInput{Kind: KindAddDirectory, TargetDir: targetDir}
}

// AddFile constructs a host-file input. len is cached from file metadata to
// accelerate the cache's "obviously changed" rejection.
func AddFile(from, to string, length int64) BuildInput {
	return BuildInput{Kind: KindAddFile, From: from, To: to, Len: length}
}

// AddBlob constructs a remote-blob input.
func AddBlob(from, to string, source BlobSource) BuildInput {
	return BuildInput{Kind: KindAddBlob, From: from, To: to, BlobSource: source}
}

// AddPackage constructs an input referencing a previously built component
// zone image, to be unpacked and re-nested into the composite archive.
func AddPackage(path string) BuildInput {
	return BuildInput{Kind: KindAddPackage, PackagePath: path}
}

// InputPath returns the host filesystem path this input reads from, if
// any. In-memory files and synthesized directories have no host path and
// are not hashed by the cache.
func (b BuildInput) InputPath() (string, bool) {
	switch b.Kind {
	case KindAddFile:
		return b.From, true
	case KindAddBlob:
		return b.From, true
	case KindAddPackage:
		return b.PackagePath, true
	default:
		return "", false
	}
}

// Equal reports whether two build inputs are identical in every field,
// used by the cache's early-exit comparison.
func (b BuildInput) Equal(other BuildInput) bool {
	return b == other
}

// Builds is the ordered, deterministic sequence of build inputs for one
// package; insertion order is part of the cache key and the archive
// script.
type Builds []BuildInput

// jsonInput is the externally-tagged on-disk shape of a single BuildInput:
// a single-key object keyed by the variant name, e.g.
// {"AddFile": {"from": ..., "to": ..., "len": ...}}.
type jsonInput struct {
	AddInMemoryFile *jsonInMemoryFile `json:"AddInMemoryFile,omitempty"`
	AddDirectory    *string           `json:"AddDirectory,omitempty"`
	AddFile         *jsonFile         `json:"AddFile,omitempty"`
	AddBlob         *jsonBlob         `json:"AddBlob,omitempty"`
	AddPackage      *string           `json:"AddPackage,omitempty"`
}

type jsonInMemoryFile struct {
	DstPath  string `json:"dst_path"`
	Contents string `json:"contents"`
}

type jsonFile struct {
	From string `json:"from"`
	To   string `json:"to"`
	Len  int64  `json:"len"`
}

type jsonBlob struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Source BlobSource `json:"source"`
}

// MarshalJSON implements the externally-tagged enum encoding.
func (b BuildInput) MarshalJSON() ([]byte, error) {
	var j jsonInput
	switch b.Kind {
	case KindAddInMemoryFile:
		j.AddInMemoryFile = &jsonInMemoryFile{DstPath: b.DstPath, Contents: b.Contents}
	case KindAddDirectory:
		j.AddDirectory = &b.TargetDir
	case KindAddFile:
		j.AddFile = &jsonFile{From: b.From, To: b.To, Len: b.Len}
	case KindAddBlob:
		j.AddBlob = &jsonBlob{From: b.From, To: b.To, Source: b.BlobSource}
	case KindAddPackage:
		j.AddPackage = &b.PackagePath
	default:
		return nil, fmt.Errorf("input: unknown kind %q", b.Kind)
	}
	return json.Marshal(j)
}

// UnmarshalJSON parses the externally-tagged enum encoding.
func (b *BuildInput) UnmarshalJSON(data []byte) error {
	var j jsonInput
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	switch {
	case j.AddInMemoryFile != nil:
		*b = AddInMemoryFile(j.AddInMemoryFile.DstPath, j.AddInMemoryFile.Contents)
	case j.AddDirectory != nil:
		*b = AddDirectory(*j.AddDirectory)
	case j.AddFile != nil:
		*b = AddFile(j.AddFile.From, j.AddFile.To, j.AddFile.Len)
	case j.AddBlob != nil:
		*b = AddBlob(j.AddBlob.From, j.AddBlob.To, j.AddBlob.Source)
	case j.AddPackage != nil:
		*b = AddPackage(*j.AddPackage)
	default:
		return fmt.Errorf("input: unrecognized encoding %s", string(data))
	}
	return nil
}
