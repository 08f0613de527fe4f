package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	"github.com/yungbote/loregraph/internal/platform/logger"
	"github.com/yungbote/loregraph/internal/platform/neo4jdb"
)

var _ Backend = (*Neo4jBackend)(nil)

// Neo4jBackend issues MERGE statements against Neo4j. Labels and relationship
// types are interpolated into Cypher only after validation against the fixed sets
// in the narrative domain package; all values travel as parameters.
type Neo4jBackend struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jBackend(client *neo4jdb.Client, log *logger.Logger) (*Neo4jBackend, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}
	return &Neo4jBackend{client: client, log: log.With("component", "Neo4jBackend")}, nil
}

func (b *Neo4jBackend) Apply(ctx context.Context, muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	type stmt struct {
		mut    Mutation
		cypher string
		params map[string]any
	}
	stmts := make([]stmt, 0, len(muts))
	for _, mut := range muts {
		if err := validateMutation(mut); err != nil {
			return err
		}
		props, err := SanitizeProps(mut.Props)
		if err != nil {
			return err
		}
		switch mut.Kind {
		case MutMergeNode:
			stmts = append(stmts, stmt{mut: mut, cypher: mergeNodeCypher(mut.Node.Label), params: map[string]any{
				"id":    mut.Node.ID,
				"props": props,
			}})
		case MutMergeEdge:
			stmts = append(stmts, stmt{mut: mut, cypher: mergeEdgeCypher(mut.From.Label, mut.Rel, mut.To.Label), params: map[string]any{
				"from":  mut.From.ID,
				"to":    mut.To.ID,
				"props": props,
			}})
		}
	}

	session := b.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, s := range stmts {
			res, err := tx.Run(ctx, s.cypher, s.params)
			if err != nil {
				return nil, err
			}
			if s.mut.Kind == MutMergeEdge {
				// MATCH on a missing endpoint yields no row and MERGE never runs.
				if !res.Next(ctx) {
					if err := res.Err(); err != nil {
						return nil, err
					}
					return nil, b.missingEndpoint(ctx, tx, s.mut)
				}
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (b *Neo4jBackend) missingEndpoint(ctx context.Context, tx neo4j.ManagedTransaction, mut Mutation) error {
	ref := mut.To
	res, err := tx.Run(ctx, existsCypher(mut.From.Label), map[string]any{"id": mut.From.ID})
	if err == nil && res.Next(ctx) {
		v, _ := res.Record().Get("ok")
		if found, _ := v.(bool); !found {
			ref = mut.From
		}
	}
	return endpointMissing(mut, ref)
}

func (b *Neo4jBackend) NodeExists(ctx context.Context, ref NodeRef) (bool, error) {
	if err := validateRef(ref); err != nil {
		return false, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := b.client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, existsCypher(ref.Label), map[string]any{"id": ref.ID})
		if err != nil {
			return false, err
		}
		if !res.Next(ctx) {
			return false, res.Err()
		}
		v, _ := res.Record().Get("ok")
		ok, _ := v.(bool)
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

func (b *Neo4jBackend) Related(ctx context.Context, from NodeRef, rel narrative.RelType, label narrative.Label) ([]Node, error) {
	if err := validateRef(from); err != nil {
		return nil, err
	}
	if !rel.Valid() {
		return nil, fmt.Errorf("graph: unknown relationship %q", rel)
	}
	if !label.Valid() {
		return nil, fmt.Errorf("graph: unknown label %q", label)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := b.client.ReadSession(ctx)
	defer session.Close(ctx)

	cypher := fmt.Sprintf(`
MATCH (a:%s {%s: $id})-[:%s]->(b:%s)
RETURN DISTINCT properties(b) AS props
`, from.Label, from.Label.KeyProperty(), rel, label)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"id": from.ID})
		if err != nil {
			return nil, err
		}
		var nodes []Node
		for res.Next(ctx) {
			raw, _ := res.Record().Get("props")
			props, _ := raw.(map[string]any)
			id, _ := props[label.KeyProperty()].(string)
			nodes = append(nodes, Node{Label: label, ID: id, Props: props})
		}
		return nodes, res.Err()
	})
	if err != nil {
		return nil, err
	}
	nodes, _ := out.([]Node)
	return nodes, nil
}

// EnsureSchema creates one uniqueness constraint per label. Failures are logged
// and skipped since restricted users may not manage schema.
func (b *Neo4jBackend) EnsureSchema(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	session := b.client.WriteSession(ctx)
	defer session.Close(ctx)

	for _, label := range narrative.Labels() {
		key := label.KeyProperty()
		cypher := fmt.Sprintf(`CREATE CONSTRAINT %s_%s_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE`,
			strings.ToLower(string(label)), key, label, key)
		res, err := session.Run(ctx, cypher, nil)
		if err != nil {
			b.log.Warn("neo4j schema init failed (continuing)", "label", label, "error", err)
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			b.log.Warn("neo4j schema init failed (continuing)", "label", label, "error", err)
		}
	}
	return ctx.Err()
}

func (b *Neo4jBackend) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}

func mergeNodeCypher(label narrative.Label) string {
	return fmt.Sprintf(`
MERGE (n:%s {%s: $id})
SET n += $props
`, label, label.KeyProperty())
}

func mergeEdgeCypher(from narrative.Label, rel narrative.RelType, to narrative.Label) string {
	return fmt.Sprintf(`
MATCH (a:%s {%s: $from})
MATCH (b:%s {%s: $to})
MERGE (a)-[r:%s]->(b)
SET r += $props
RETURN 1 AS ok
`, from, from.KeyProperty(), to, to.KeyProperty(), rel)
}

func existsCypher(label narrative.Label) string {
	return fmt.Sprintf(`
OPTIONAL MATCH (n:%s {%s: $id})
RETURN n IS NOT NULL AS ok
LIMIT 1
`, label, label.KeyProperty())
}
