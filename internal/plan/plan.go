// Package plan computes the dependency-ordered build batches for a set of
// packages: which outputs can be built concurrently, and in what order,
// so that every composite package is built only after the component
// archives it references.
package plan

import (
	"fmt"
	"sort"

	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/identifier"
	"github.com/oxidecomputer/zonepkg/internal/target"
)

// Batch is a set of packages whose builds have no ordering dependency on
// one another and so may run concurrently.
type Batch []identifier.PackageName

// Planner computes build batches over a fixed package set.
type Planner struct {
	Packages map[identifier.PackageName]config.Package
}

// Batches returns the packages selected by t, grouped into dependency
// order: every package in batch N only depends on packages in batches
// before N. A composite package always appears after every package named
// in its component list.
//
// Batches panics if the package graph is cyclic, or if a composite
// package names a component output that no included package produces -
// both are manifest authoring errors, not recoverable build conditions.
func (p *Planner) Batches(t *target.Target) []Batch {
	included := map[identifier.PackageName]config.Package{}
	lookup := map[string]identifier.PackageName{}

	for name, pkg := range p.Packages {
		if !t.Includes(pkg.OnlyForTargets) {
			continue
		}
		included[name] = pkg
		lookup[pkg.OutputFile(string(name))] = name
	}

	nodes := map[string]bool{}
	indegree := map[string]int{}
	adjacency := map[string][]string{}

	ensureNode := func(output string) {
		if !nodes[output] {
			nodes[output] = true
			indegree[output] = 0
		}
	}

	for name, pkg := range included {
		output := pkg.OutputFile(string(name))

		switch pkg.Source.Type {
		case config.SourceComposite:
			ensureNode(output)
			for _, dep := range pkg.Source.Packages {
				ensureNode(dep)
				adjacency[dep] = append(adjacency[dep], output)
				indegree[output]++
			}

		default:
			// Intermediate-only zone packages are leaf build artifacts
			// consumed exclusively by a composite's AddPackage input; they
			// are only added to the graph when some composite references
			// their output by name, via ensureNode above.
			if pkg.Output.Type == config.OutputZone && pkg.Output.IntermediateOnly {
				continue
			}
			ensureNode(output)
		}
	}

	var batches []Batch
	for len(nodes) > 0 {
		var ready []string
		for n := range nodes {
			if indegree[n] == 0 {
				ready = append(ready, n)
			}
		}
		sort.Strings(ready)

		if len(ready) == 0 {
			panic("cyclic dependency in package manifest")
		}

		batch := make(Batch, 0, len(ready))
		for _, output := range ready {
			name, ok := lookup[output]
			if !ok {
				panic(fmt.Sprintf("Could not find a package which creates '%s'", output))
			}
			batch = append(batch, name)
		}

		for _, output := range ready {
			for _, dependent := range adjacency[output] {
				indegree[dependent]--
			}
			delete(nodes, output)
			delete(indegree, output)
		}

		batches = append(batches, batch)
	}

	return batches
}
