package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// fakePlugin is a minimal plugin for resolver and engine tests.
type fakePlugin struct {
	name    string
	deps    []string
	initErr error
	outputs map[string]interface{}
	inits   int
	lastReq InitRequest
}

func (p *fakePlugin) Name() string           { return p.name }
func (p *fakePlugin) Description() string    { return "test plugin " + p.name }
func (p *fakePlugin) Schema() string         { return "{...}" }
func (p *fakePlugin) Dependencies() []string { return p.deps }

func (p *fakePlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	return raw, nil
}

func (p *fakePlugin) Init(ctx context.Context, req InitRequest) (*InitResponse, error) {
	p.inits++
	p.lastReq = req
	if p.initErr != nil {
		return nil, p.initErr
	}
	return &InitResponse{Outputs: p.outputs}, nil
}

// fakeRegistry maps names to fake plugins, registering them on demand so
// graph tests only need to declare the plugins with implied dependencies.
type fakeRegistry struct {
	plugins map[string]*fakePlugin
}

func newFakeRegistry(plugins ...*fakePlugin) *fakeRegistry {
	r := &fakeRegistry{plugins: make(map[string]*fakePlugin)}
	for _, p := range plugins {
		r.plugins[p.name] = p
	}
	return r
}

func (r *fakeRegistry) Get(name string) (Plugin, error) {
	if p, ok := r.plugins[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown plugin: %s", name)
}

func (r *fakeRegistry) List() []Plugin {
	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	return out
}

// registryFor builds a fake registry covering every named entry.
func registryFor(names ...string) *fakeRegistry {
	plugins := make([]*fakePlugin, 0, len(names))
	for _, name := range names {
		plugins = append(plugins, &fakePlugin{name: name})
	}
	return newFakeRegistry(plugins...)
}

func entriesFor(specs map[string][]string) []ProviderEntry {
	entries := make([]ProviderEntry, 0, len(specs))
	for name, deps := range specs {
		entries = append(entries, ProviderEntry{Name: name, Dependencies: deps})
	}
	return entries
}

func TestResolveEmptyEntries(t *testing.T) {
	graph, err := NewGraphBuilder().Resolve(nil, registryFor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(graph.Order) != 0 {
		t.Errorf("expected empty order, got %v", graph.Order)
	}
}

func TestResolveLinearChain(t *testing.T) {
	entries := entriesFor(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"b"},
	})

	graph, err := NewGraphBuilder().Resolve(entries, registryFor("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(graph.Order, want) {
		t.Errorf("expected order %v, got %v", want, graph.Order)
	}
	if len(graph.Levels) != 3 {
		t.Errorf("expected 3 levels, got %d", len(graph.Levels))
	}
	if !reflect.DeepEqual(graph.Roots, []string{"a"}) {
		t.Errorf("expected roots [a], got %v", graph.Roots)
	}
}

func TestResolveLevelsSortedByName(t *testing.T) {
	entries := entriesFor(map[string][]string{
		"zeta":  nil,
		"alpha": nil,
		"mid":   {"alpha", "zeta"},
	})

	graph, err := NewGraphBuilder().Resolve(entries, registryFor("zeta", "alpha", "mid"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(graph.Levels[0], []string{"alpha", "zeta"}) {
		t.Errorf("expected level 0 sorted [alpha zeta], got %v", graph.Levels[0])
	}
	if !reflect.DeepEqual(graph.Order, []string{"alpha", "zeta", "mid"}) {
		t.Errorf("unexpected order %v", graph.Order)
	}
}

func TestResolveDiamond(t *testing.T) {
	entries := entriesFor(map[string][]string{
		"base":  nil,
		"left":  {"base"},
		"right": {"base"},
		"top":   {"left", "right"},
	})

	graph, err := NewGraphBuilder().Resolve(entries, registryFor("base", "left", "right", "top"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(graph.Levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(graph.Levels), graph.Levels)
	}
	if !reflect.DeepEqual(graph.Levels[1], []string{"left", "right"}) {
		t.Errorf("expected level 1 [left right], got %v", graph.Levels[1])
	}
}

func TestResolveImpliedDependency(t *testing.T) {
	preset := &fakePlugin{name: "preset", deps: []string{"core"}}
	core := &fakePlugin{name: "core"}
	registry := newFakeRegistry(preset, core)

	entries := []ProviderEntry{
		{Name: "preset"},
		{Name: "core"},
	}

	graph, err := NewGraphBuilder().Resolve(entries, registry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(graph.Order, []string{"core", "preset"}) {
		t.Errorf("expected core before preset, got %v", graph.Order)
	}
	if !reflect.DeepEqual(graph.Dependencies["preset"], []string{"core"}) {
		t.Errorf("expected implied dependency on core, got %v", graph.Dependencies["preset"])
	}
}

func TestResolveImpliedDependencyNotDeclared(t *testing.T) {
	// An implied dependency on a provider the project never declared is
	// dropped rather than treated as missing.
	preset := &fakePlugin{name: "preset", deps: []string{"core"}}
	registry := newFakeRegistry(preset)

	graph, err := NewGraphBuilder().Resolve([]ProviderEntry{{Name: "preset"}}, registry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(graph.Dependencies["preset"]) != 0 {
		t.Errorf("expected no dependencies, got %v", graph.Dependencies["preset"])
	}
}

func TestResolveMissingExplicitDependency(t *testing.T) {
	entries := []ProviderEntry{
		{Name: "app", Dependencies: []string{"missing"}},
	}

	_, err := NewGraphBuilder().Resolve(entries, registryFor("app"))
	if err == nil {
		t.Fatal("expected error for missing dependency")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, perr.Code)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the missing dependency: %v", err)
	}
}

func TestResolveSelfReferenceIgnored(t *testing.T) {
	entries := []ProviderEntry{
		{Name: "solo", Dependencies: []string{"solo"}},
	}

	graph, err := NewGraphBuilder().Resolve(entries, registryFor("solo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(graph.Dependencies["solo"]) != 0 {
		t.Errorf("self reference should be dropped, got %v", graph.Dependencies["solo"])
	}
}

func TestResolveCycle(t *testing.T) {
	entries := entriesFor(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})

	_, err := NewGraphBuilder().Resolve(entries, registryFor("a", "b"))
	if err == nil {
		t.Fatal("expected cycle error")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Code != ErrCodeCycle {
		t.Errorf("expected code %s, got %s", ErrCodeCycle, perr.Code)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("cycle error should include the path: %v", err)
	}
}

func TestResolveThreeNodeCyclePath(t *testing.T) {
	entries := entriesFor(map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	})

	_, err := NewGraphBuilder().Resolve(entries, registryFor("a", "b", "c"))
	if err == nil {
		t.Fatal("expected cycle error")
	}
	msg := err.Error()
	for _, name := range []string{"a", "b", "c"} {
		if !strings.Contains(msg, name) {
			t.Errorf("cycle path should mention %s: %v", name, msg)
		}
	}
}

func TestResolveDuplicateEntry(t *testing.T) {
	entries := []ProviderEntry{
		{Name: "dup"},
		{Name: "dup"},
	}

	_, err := NewGraphBuilder().Resolve(entries, registryFor("dup"))
	if err == nil {
		t.Fatal("expected duplicate entry error")
	}
}

func TestResolveUnknownPlugin(t *testing.T) {
	_, err := NewGraphBuilder().Resolve([]ProviderEntry{{Name: "ghost"}}, registryFor())
	if err == nil {
		t.Fatal("expected unknown plugin error")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, perr.Code)
	}
}

func TestToDOT(t *testing.T) {
	entries := entriesFor(map[string][]string{
		"a": nil,
		"b": {"a"},
	})

	graph, err := NewGraphBuilder().Resolve(entries, registryFor("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dot := graph.ToDOT()
	if !strings.Contains(dot, "digraph ProviderGraph") {
		t.Error("DOT output missing digraph header")
	}
	if !strings.Contains(dot, `"a" -> "b"`) {
		t.Errorf("DOT output missing edge a -> b:\n%s", dot)
	}
}
