package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func sequence(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestWorldRegeneratesOnCollision(t *testing.T) {
	n := New(WithGenerator(sequence("w-1", "w-2", "w-3")))
	taken := map[string]bool{"w-1": true, "w-2": true}
	id, err := n.World(context.Background(), func(_ context.Context, id string) (bool, error) {
		return taken[id], nil
	})
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	if id != "w-3" {
		t.Fatalf("World: want=%q got=%q", "w-3", id)
	}
}

func TestWorldGivesUpAfterAttempts(t *testing.T) {
	n := New(WithGenerator(sequence("dup")), WithWorldAttempts(3))
	calls := 0
	_, err := n.World(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	if err == nil {
		t.Fatalf("World: expected error")
	}
	if calls != 3 {
		t.Fatalf("exists calls: want=%d got=%d", 3, calls)
	}
}

func TestWorldPropagatesLookupError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New().World(context.Background(), func(context.Context, string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("World: want=%v got=%v", boom, err)
	}
}

func TestWorldIdsAreUnique(t *testing.T) {
	n := New()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := n.World(context.Background(), nil)
		if err != nil {
			t.Fatalf("World: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate world id %q", id)
		}
		seen[id] = true
	}
}

func TestNamespacing(t *testing.T) {
	n := New(WithGenerator(sequence("gen")))
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"scene supplied", n.Scene("w", "market"), "w.market"},
		{"scene generated", n.Scene("w", nil), "w.gen"},
		{"scene blank", n.Scene("w", "  "), "w.gen"},
		{"scene non-string", n.Scene("w", 12.0), "w.gen"},
		{"choice", n.Choice("w", "w.market", "haggle"), "w.w.market.haggle"},
		{"npc", n.NPC("w", "vela"), "w.vela"},
		{"faction", n.Faction("w", "ash-guild"), "w.ash-guild"},
		{"already namespaced", n.Scene("w", "w.market"), "w.market"},
		{"choice already namespaced", n.Choice("w", "w.market", "w.w.market.leave"), "w.w.market.leave"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, tc.got)
		}
	}
}

func TestSceneScopesAreDisjointAcrossWorlds(t *testing.T) {
	n := New()
	for i := 0; i < 5; i++ {
		a := n.Scene(fmt.Sprintf("world-%d", i), "s1")
		b := n.Scene(fmt.Sprintf("world-%d", i+1), "s1")
		if a == b {
			t.Fatalf("scene ids collided across worlds: %q", a)
		}
		if !strings.HasPrefix(a, Prefix(fmt.Sprintf("world-%d", i))) {
			t.Fatalf("missing prefix: %q", a)
		}
	}
}
