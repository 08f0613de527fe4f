package graph

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
	"github.com/yungbote/loregraph/internal/platform/logger"
	"github.com/yungbote/loregraph/internal/platform/neo4jdb"
)

func TestMergeEdgeCypherUsesKeys(t *testing.T) {
	got := mergeEdgeCypher(narrative.LabelScene, narrative.RelOffers, narrative.LabelChoice)
	for _, want := range []string{
		"MATCH (a:Scene {scene_id: $from})",
		"MATCH (b:Choice {choice_id: $to})",
		"MERGE (a)-[r:OFFERS]->(b)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("cypher missing %q:\n%s", want, got)
		}
	}
}

func neo4jBackendForTest(t *testing.T) *Neo4jBackend {
	t.Helper()
	uri := strings.TrimSpace(os.Getenv("NEO4J_TEST_URI"))
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	log := logger.NewNop()
	client, err := neo4jdb.New(context.Background(), neo4jdb.Config{
		URI:      uri,
		User:     os.Getenv("NEO4J_TEST_USER"),
		Password: os.Getenv("NEO4J_TEST_PASSWORD"),
		Timeout:  5 * time.Second,
	}, log)
	if err != nil {
		t.Fatalf("neo4jdb.New: %v", err)
	}
	b, err := NewNeo4jBackend(client, log)
	if err != nil {
		t.Fatalf("NewNeo4jBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestNeo4jBackendMergeSemantics(t *testing.T) {
	b := neo4jBackendForTest(t)
	ctx := context.Background()
	if err := b.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	w := NodeRef{Label: narrative.LabelWorld, ID: uuid.NewString()}
	s := NodeRef{Label: narrative.LabelScene, ID: w.ID + ".s1"}
	c := NodeRef{Label: narrative.LabelChoice, ID: s.ID + ".c1"}
	muts := []Mutation{
		MergeNode(w, map[string]any{"name": "Ember Reach"}),
		MergeNode(s, map[string]any{"title": "The Ashfall Market"}),
		MergeNode(c, map[string]any{"title": "Haggle", "tags": []any{"trade"}}),
		MergeEdge(s, narrative.RelOffers, c, nil),
	}
	for i := 0; i < 2; i++ {
		if err := b.Apply(ctx, muts); err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
	}
	ok, err := b.NodeExists(ctx, w)
	if err != nil || !ok {
		t.Fatalf("NodeExists: ok=%v err=%v", ok, err)
	}
	nodes, err := b.Related(ctx, s, narrative.RelOffers, narrative.LabelChoice)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != c.ID || nodes[0].Props["tags"] != `["trade"]` {
		t.Fatalf("Related: got=%+v", nodes)
	}

	missing := NodeRef{Label: narrative.LabelScene, ID: w.ID + ".nowhere"}
	err = b.Apply(ctx, []Mutation{MergeEdge(c, narrative.RelLeadsTo, missing, nil)})
	if !errors.Is(err, nerrors.ErrEndpointMissing) {
		t.Fatalf("missing endpoint: want=%v got=%v", nerrors.ErrEndpointMissing, err)
	}
}
