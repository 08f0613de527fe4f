// Package graph is the property-graph boundary of the narrative store. Writes are
// batches of merge mutations applied in one transaction; reads are simple pattern
// lookups. Neo4jBackend talks to a real database and MemoryBackend keeps the same
// semantics in process.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

type NodeRef struct {
	Label narrative.Label
	ID    string
}

func (r NodeRef) String() string { return fmt.Sprintf("(%s %s)", r.Label, r.ID) }

type Node struct {
	Label narrative.Label
	ID    string
	Props map[string]any
}

type MutationKind int

const (
	MutMergeNode MutationKind = iota + 1
	MutMergeEdge
)

// Mutation is one merge. For nodes Node and Props are set; for edges From, Rel,
// To and optional edge Props.
type Mutation struct {
	Kind  MutationKind
	Node  NodeRef
	From  NodeRef
	To    NodeRef
	Rel   narrative.RelType
	Props map[string]any
}

// MergeNode creates the node keyed by ref or overwrites the given properties on it.
func MergeNode(ref NodeRef, props map[string]any) Mutation {
	return Mutation{Kind: MutMergeNode, Node: ref, Props: props}
}

// MergeEdge creates at most one rel edge between from and to.
func MergeEdge(from NodeRef, rel narrative.RelType, to NodeRef, props map[string]any) Mutation {
	return Mutation{Kind: MutMergeEdge, From: from, Rel: rel, To: to, Props: props}
}

type Backend interface {
	Apply(ctx context.Context, muts []Mutation) error
	NodeExists(ctx context.Context, ref NodeRef) (bool, error)
	// Related returns the distinct nodes labelled label reached from `from` over rel.
	Related(ctx context.Context, from NodeRef, rel narrative.RelType, label narrative.Label) ([]Node, error)
	EnsureSchema(ctx context.Context) error
	Close(ctx context.Context) error
}

func validateRef(ref NodeRef) error {
	if !ref.Label.Valid() {
		return fmt.Errorf("graph: unknown label %q", ref.Label)
	}
	if strings.TrimSpace(ref.ID) == "" {
		return fmt.Errorf("graph: %s node without id", ref.Label)
	}
	return nil
}

func validateMutation(m Mutation) error {
	switch m.Kind {
	case MutMergeNode:
		return validateRef(m.Node)
	case MutMergeEdge:
		if !m.Rel.Valid() {
			return fmt.Errorf("graph: unknown relationship %q", m.Rel)
		}
		if err := validateRef(m.From); err != nil {
			return err
		}
		return validateRef(m.To)
	default:
		return fmt.Errorf("graph: unknown mutation kind %d", m.Kind)
	}
}

func endpointMissing(m Mutation, ref NodeRef) error {
	return fmt.Errorf("%w: %s -[%s]-> %s: %s not found", nerrors.ErrEndpointMissing, m.From, m.Rel, m.To, ref)
}
