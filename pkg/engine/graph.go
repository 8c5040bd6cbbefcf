package engine

import (
	"fmt"
	"sort"
	"strings"
)

// GraphBuilder builds the provider dependency graph from manifest entries.
// It unions explicit manifest dependencies with plugin-implied dependencies,
// performs topological sorting and assigns resolution levels.
type GraphBuilder struct {
	// entries maps provider names to their manifest entries
	entries map[string]*ProviderEntry

	// dependents maps provider names to the providers that depend on them
	dependents map[string][]string

	// dependencies maps provider names to their resolved dependency set
	dependencies map[string][]string

	// inDegree tracks the number of unresolved dependencies per provider
	inDegree map[string]int

	// levels maps resolution level to provider names at that level
	levels [][]string
}

// ProviderGraph is the resolved provider dependency graph.
type ProviderGraph struct {
	// Order is the full resolution order, flattened from the levels.
	Order []string

	// Levels groups providers whose dependencies are all satisfied by
	// earlier levels. Providers within a level are sorted by name.
	Levels [][]string

	// Dependencies maps each provider to its resolved dependency set.
	Dependencies map[string][]string

	// Roots are providers with no dependencies.
	Roots []string
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		entries:      make(map[string]*ProviderEntry),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
		inDegree:     make(map[string]int),
		levels:       make([][]string, 0),
	}
}

// Resolve constructs the provider resolution order from manifest entries.
// Implied dependencies come from the registry's plugins; unknown or
// filtered-out dependencies and cycles are configuration errors.
func (b *GraphBuilder) Resolve(entries []ProviderEntry, registry PluginRegistry) (*ProviderGraph, error) {
	if len(entries) == 0 {
		return &ProviderGraph{
			Order:        make([]string, 0),
			Levels:       make([][]string, 0),
			Dependencies: make(map[string][]string),
			Roots:        make([]string, 0),
		}, nil
	}

	if err := b.initialize(entries, registry); err != nil {
		return nil, err
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	if err := b.computeLevels(); err != nil {
		return nil, err
	}

	return b.buildGraph(), nil
}

// initialize indexes the entries and builds the adjacency structures.
func (b *GraphBuilder) initialize(entries []ProviderEntry, registry PluginRegistry) error {
	for i := range entries {
		entry := &entries[i]
		if entry.Name == "" {
			return NewPermanentError("provider entry has empty name", nil).
				WithCode(ErrCodeValidation)
		}

		if _, exists := b.entries[entry.Name]; exists {
			return NewPermanentError(fmt.Sprintf("duplicate provider entry: %s", entry.Name), nil).
				WithCode(ErrCodeValidation)
		}

		b.entries[entry.Name] = entry
		b.dependents[entry.Name] = make([]string, 0)
		b.inDegree[entry.Name] = 0
	}

	for name, entry := range b.entries {
		deps, err := b.resolveDependencies(entry, registry)
		if err != nil {
			return err
		}
		b.dependencies[name] = deps

		for _, dep := range deps {
			if _, exists := b.entries[dep]; !exists {
				return NewPermanentError(
					fmt.Sprintf("provider %s depends on %s, which is not active in this environment", name, dep),
					nil,
				).WithCode(ErrCodeValidation).WithProvider(name)
			}

			// dep must resolve before name
			b.dependents[dep] = append(b.dependents[dep], name)
			b.inDegree[name]++
		}
	}

	return nil
}

// resolveDependencies unions an entry's explicit dependencies with the
// plugin's implied dependencies, dropping duplicates and self-references.
func (b *GraphBuilder) resolveDependencies(entry *ProviderEntry, registry PluginRegistry) ([]string, error) {
	seen := make(map[string]bool)
	deps := make([]string, 0, len(entry.Dependencies))

	add := func(dep string) {
		if dep == entry.Name || seen[dep] {
			return
		}
		seen[dep] = true
		deps = append(deps, dep)
	}

	for _, dep := range entry.Dependencies {
		add(dep)
	}

	if registry != nil {
		plugin, err := registry.Get(entry.Name)
		if err != nil {
			return nil, NewPermanentError(fmt.Sprintf("unknown plugin: %s", entry.Name), err).
				WithCode(ErrCodeNotFound).WithProvider(entry.Name)
		}
		// Implied dependencies only bind when the dependency is part of
		// this resolution; a plugin preferring another provider does not
		// force the project to declare it.
		for _, dep := range plugin.Dependencies() {
			if _, active := b.entries[dep]; active {
				add(dep)
			}
		}
	}

	sort.Strings(deps)
	return deps, nil
}

// detectCycles uses depth-first search to detect circular dependencies.
func (b *GraphBuilder) detectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make([]string, 0)

	// Deterministic traversal order so the reported cycle is stable.
	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] {
			if cycle := b.visit(name, visited, recStack, path); cycle != nil {
				return NewPermanentError(
					fmt.Sprintf("circular provider dependency: %s", strings.Join(cycle, " -> ")),
					nil,
				).WithCode(ErrCodeCycle)
			}
		}
	}

	return nil
}

// visit performs DFS along dependency edges, returning the cycle path if one
// is found.
func (b *GraphBuilder) visit(name string, visited, recStack map[string]bool, path []string) []string {
	visited[name] = true
	recStack[name] = true
	path = append(path, name)

	for _, dep := range b.dependencies[name] {
		if _, exists := b.entries[dep]; !exists {
			continue
		}
		if !visited[dep] {
			if cycle := b.visit(dep, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dep] {
			cycleStart := -1
			for i, id := range path {
				if id == dep {
					cycleStart = i
					break
				}
			}
			if cycleStart >= 0 {
				return append(path[cycleStart:], dep)
			}
			return append(path, dep)
		}
	}

	recStack[name] = false
	return nil
}

// computeLevels assigns resolution levels using Kahn's algorithm.
// Providers at the same level have no ordering constraint between them;
// levels are sorted by name for deterministic output.
func (b *GraphBuilder) computeLevels() error {
	inDegree := make(map[string]int, len(b.inDegree))
	for name, degree := range b.inDegree {
		inDegree[name] = degree
	}

	currentLevel := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			currentLevel = append(currentLevel, name)
		}
	}

	if len(currentLevel) == 0 && len(b.entries) > 0 {
		return NewPermanentError("no root providers found - all entries have dependencies", nil).
			WithCode(ErrCodeCycle)
	}

	processed := 0
	for len(currentLevel) > 0 {
		sort.Strings(currentLevel)
		b.levels = append(b.levels, currentLevel)
		processed += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, name := range currentLevel {
			for _, dependent := range b.dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					nextLevel = append(nextLevel, dependent)
				}
			}
		}

		currentLevel = nextLevel
	}

	// Should never trigger once cycle detection passed.
	if processed != len(b.entries) {
		return NewPermanentError("failed to order all providers - possible cycle", nil).
			WithCode(ErrCodeInternal)
	}

	return nil
}

// buildGraph creates the final ProviderGraph structure.
func (b *GraphBuilder) buildGraph() *ProviderGraph {
	graph := &ProviderGraph{
		Order:        make([]string, 0, len(b.entries)),
		Levels:       b.levels,
		Dependencies: b.dependencies,
		Roots:        make([]string, 0),
	}

	for level, names := range b.levels {
		graph.Order = append(graph.Order, names...)
		if level == 0 {
			graph.Roots = append(graph.Roots, names...)
		}
	}

	return graph
}

// ToDOT generates a DOT format representation of the provider graph for
// visualization. The output can be rendered with Graphviz tools.
func (g *ProviderGraph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph ProviderGraph {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, names := range g.Levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("    %q;\n", name))
		}
		sb.WriteString("  }\n\n")
	}

	names := make([]string, 0, len(g.Dependencies))
	for name := range g.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, dep := range g.Dependencies[name] {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, name))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
