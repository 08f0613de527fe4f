package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/yungbote/loregraph/internal/domain/narrative"
)

var _ Backend = (*MemoryBackend)(nil)

type edgeKey struct {
	from NodeRef
	rel  narrative.RelType
	to   NodeRef
}

// MemoryBackend is an in-process Backend. It is safe for concurrent use.
type MemoryBackend struct {
	mu    sync.RWMutex
	nodes map[NodeRef]map[string]any
	edges map[edgeKey]map[string]any
	// out indexes edges by source for Related.
	out map[NodeRef][]edgeKey
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nodes: make(map[NodeRef]map[string]any),
		edges: make(map[edgeKey]map[string]any),
		out:   make(map[NodeRef][]edgeKey),
	}
}

// Apply checks the whole batch first so a failing mutation leaves nothing behind.
func (m *MemoryBackend) Apply(ctx context.Context, muts []Mutation) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	staged := make([]Mutation, 0, len(muts))
	for _, mut := range muts {
		if err := validateMutation(mut); err != nil {
			return err
		}
		props, err := SanitizeProps(mut.Props)
		if err != nil {
			return err
		}
		mut.Props = props
		staged = append(staged, mut)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make(map[NodeRef]bool)
	for _, mut := range staged {
		switch mut.Kind {
		case MutMergeNode:
			pending[mut.Node] = true
		case MutMergeEdge:
			for _, ref := range []NodeRef{mut.From, mut.To} {
				if _, ok := m.nodes[ref]; !ok && !pending[ref] {
					return endpointMissing(mut, ref)
				}
			}
		}
	}

	for _, mut := range staged {
		switch mut.Kind {
		case MutMergeNode:
			props, ok := m.nodes[mut.Node]
			if !ok {
				props = make(map[string]any, len(mut.Props)+1)
				m.nodes[mut.Node] = props
			}
			for k, v := range mut.Props {
				props[k] = v
			}
			props[mut.Node.Label.KeyProperty()] = mut.Node.ID
		case MutMergeEdge:
			key := edgeKey{from: mut.From, rel: mut.Rel, to: mut.To}
			props, ok := m.edges[key]
			if !ok {
				props = make(map[string]any, len(mut.Props))
				m.edges[key] = props
				m.out[mut.From] = append(m.out[mut.From], key)
			}
			for k, v := range mut.Props {
				props[k] = v
			}
		}
	}
	return nil
}

func (m *MemoryBackend) NodeExists(ctx context.Context, ref NodeRef) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	if err := validateRef(ref); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[ref]
	return ok, nil
}

func (m *MemoryBackend) Related(ctx context.Context, from NodeRef, rel narrative.RelType, label narrative.Label) ([]Node, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := validateRef(from); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[NodeRef]bool)
	var out []Node
	for _, key := range m.out[from] {
		if key.rel != rel || key.to.Label != label || seen[key.to] {
			continue
		}
		seen[key.to] = true
		out = append(out, Node{Label: key.to.Label, ID: key.to.ID, Props: copyProps(m.nodes[key.to])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryBackend) EnsureSchema(ctx context.Context) error { return ctxErr(ctx) }

func (m *MemoryBackend) Close(context.Context) error { return nil }

// Node returns a copy of the stored node.
func (m *MemoryBackend) Node(ref NodeRef) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	props, ok := m.nodes[ref]
	if !ok {
		return Node{}, false
	}
	return Node{Label: ref.Label, ID: ref.ID, Props: copyProps(props)}, true
}

func (m *MemoryBackend) CountNodes(label narrative.Label) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for ref := range m.nodes {
		if ref.Label == label {
			n++
		}
	}
	return n
}

// CountEdges counts rel edges; zero-value refs act as wildcards.
func (m *MemoryBackend) CountEdges(from NodeRef, rel narrative.RelType, to NodeRef) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for key := range m.edges {
		if key.rel != rel {
			continue
		}
		if from != (NodeRef{}) && key.from != from {
			continue
		}
		if to != (NodeRef{}) && key.to != to {
			continue
		}
		n++
	}
	return n
}

// EdgeProps returns a copy of the properties on one edge.
func (m *MemoryBackend) EdgeProps(from NodeRef, rel narrative.RelType, to NodeRef) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	props, ok := m.edges[edgeKey{from: from, rel: rel, to: to}]
	if !ok {
		return nil, false
	}
	return copyProps(props), true
}

func copyProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
