package schema

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/yungbote/loregraph/internal/domain/narrative"
)

//go:embed *.json
var FS embed.FS

// baseURL anchors relative $refs between the embedded documents. Nothing is fetched from it.
const baseURL = "https://loregraph.dev/schema/"

var documentForKind = map[narrative.Kind]string{
	narrative.KindWorld:   "world_v1.json",
	narrative.KindScene:   "scene_v1.json",
	narrative.KindChoice:  "choice_v1.json",
	narrative.KindNPC:     "npc_v1.json",
	narrative.KindFaction: "faction_v1.json",
}

type registry struct {
	docs     map[string]map[string]any
	compiled map[string]*jsonschema.Schema
}

var (
	registryOnce sync.Once
	loaded       *registry
	registryErr  error
)

func World() (map[string]any, error)   { return For(narrative.KindWorld) }
func Scene() (map[string]any, error)   { return For(narrative.KindScene) }
func Choice() (map[string]any, error)  { return For(narrative.KindChoice) }
func NPC() (map[string]any, error)     { return For(narrative.KindNPC) }
func Faction() (map[string]any, error) { return For(narrative.KindFaction) }

// For returns the schema document validating a single entity of kind.
func For(kind narrative.Kind) (map[string]any, error) {
	name, ok := documentForKind[kind]
	if !ok {
		return nil, fmt.Errorf("schema: no schema for kind %q", kind)
	}
	reg, err := load()
	if err != nil {
		return nil, err
	}
	return reg.docs[name], nil
}

func load() (*registry, error) {
	registryOnce.Do(func() {
		loaded, registryErr = loadAll()
	})
	return loaded, registryErr
}

func loadAll() (*registry, error) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	raw := make(map[string]any, len(entries))
	docs := make(map[string]map[string]any, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := FS.ReadFile(e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", e.Name(), err)
		}
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse schema %s: top level is not an object", e.Name())
		}
		raw[e.Name()] = doc
		docs[e.Name()] = m
	}
	for kind, name := range documentForKind {
		if _, ok := docs[name]; !ok {
			return nil, fmt.Errorf("schema %s for kind %s is missing", name, kind)
		}
	}
	compiled, err := Compile(raw)
	if err != nil {
		return nil, err
	}
	return &registry{docs: docs, compiled: compiled}, nil
}

// Compile registers every document under a shared base so relative $refs
// resolve between them, then compiles each one. A document that fails to
// compile (unknown type, dangling $ref) is reported by name.
func Compile(docs map[string]any) (map[string]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft7)

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := c.AddResource(baseURL+name, docs[name]); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		sch, err := c.Compile(baseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = sch
	}
	return out, nil
}
