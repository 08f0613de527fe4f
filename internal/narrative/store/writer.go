package store

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/loregraph/internal/data/graph"
	"github.com/yungbote/loregraph/internal/domain/narrative"
	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/narrative/events"
	"github.com/yungbote/loregraph/internal/narrative/payload"
	"github.com/yungbote/loregraph/internal/narrative/schema"
	"github.com/yungbote/loregraph/internal/observability"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

// Keys whose values become related nodes rather than properties.
var (
	worldChildKeys = []string{"factions", "npc", "npcs"}
	sceneChildKeys = []string{"npcs"}
)

// SaveWorld stores a brand-new World with its factions and NPCs and makes it the
// session's current world. Every call creates a new World node.
func (s *Store) SaveWorld(ctx context.Context, tr *continuity.Tracker, raw any) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "SaveWorld", tr)
	defer func() { observability.EndSpan(span, err) }()
	if tr == nil {
		return Ack{}, fmt.Errorf("store: session required")
	}

	v, err := payload.Normalize(narrative.KindWorld, raw)
	if err != nil {
		return Ack{}, err
	}
	world := v.Object
	// A provisional id satisfies the schema; the stored id is drawn after validation.
	world["world_id"] = s.namer.Local(nil)
	if err := schema.Validate(narrative.KindWorld, world); err != nil {
		return Ack{}, err
	}

	rctx, cancel := s.roundTrip(ctx)
	defer cancel()
	worldID, err := s.namer.World(rctx, func(ctx context.Context, id string) (bool, error) {
		return s.backend.NodeExists(ctx, graph.NodeRef{Label: narrative.LabelWorld, ID: id})
	})
	if err != nil {
		return Ack{}, nerrors.Store("SaveWorld", err)
	}
	world["world_id"] = worldID
	worldRef := graph.NodeRef{Label: narrative.LabelWorld, ID: worldID}

	muts := []graph.Mutation{graph.MergeNode(worldRef, without(world, worldChildKeys...))}
	for _, f := range objects(world["factions"]) {
		ref := graph.NodeRef{Label: narrative.LabelFaction, ID: s.namer.Faction(worldID, f["faction_id"])}
		f["faction_id"] = ref.ID
		muts = append(muts,
			graph.MergeNode(ref, f),
			graph.MergeEdge(worldRef, narrative.RelHasFaction, ref, nil),
		)
	}
	for _, key := range []string{"npc", "npcs"} {
		for _, npc := range objects(world[key]) {
			ref := s.npcRef(worldID, npc)
			muts = append(muts,
				graph.MergeNode(ref, npc),
				graph.MergeEdge(worldRef, narrative.RelHasNPC, ref, nil),
			)
		}
	}
	if err := s.backend.Apply(rctx, muts); err != nil {
		return Ack{}, nerrors.Store("SaveWorld", err)
	}

	tr.SetWorld(ctx, worldID)
	ack = Ack{
		Kind:    narrative.KindWorld,
		ID:      worldID,
		Message: fmt.Sprintf("World '%s' saved (world_id=%s).", text(world["name"]), worldID),
	}
	span.SetAttributes(attribute.String("narrative.world_id", worldID))
	s.log.Info("world saved", "session_id", tr.SessionID(), "world_id", worldID, "mutations", len(muts))
	s.record(ctx, tr, "SaveWorld", events.WorldSaved, ack)
	return ack, nil
}

// SaveScene stores a Scene under the current world, with the NPCs it introduces,
// and makes it the current scene. Re-saving the same local id merges into one node.
func (s *Store) SaveScene(ctx context.Context, tr *continuity.Tracker, raw any) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "SaveScene", tr)
	defer func() { observability.EndSpan(span, err) }()
	if tr == nil {
		return Ack{}, fmt.Errorf("store: session required")
	}

	v, err := payload.Normalize(narrative.KindScene, raw)
	if err != nil {
		return Ack{}, err
	}
	scene := v.Object
	if err := schema.Validate(narrative.KindScene, scene); err != nil {
		return Ack{}, err
	}
	worldID, err := tr.World()
	if err != nil {
		return Ack{}, err
	}

	sceneID := s.namer.Scene(worldID, scene["scene_id"])
	scene["scene_id"] = sceneID
	sceneRef := graph.NodeRef{Label: narrative.LabelScene, ID: sceneID}

	muts := []graph.Mutation{graph.MergeNode(sceneRef, without(scene, sceneChildKeys...))}
	for _, npc := range objects(scene["npcs"]) {
		ref := s.npcRef(worldID, npc)
		muts = append(muts,
			graph.MergeNode(ref, npc),
			graph.MergeEdge(sceneRef, narrative.RelHasNPC, ref, nil),
		)
	}

	rctx, cancel := s.roundTrip(ctx)
	defer cancel()
	if err := s.backend.Apply(rctx, muts); err != nil {
		return Ack{}, nerrors.Store("SaveScene", err)
	}

	tr.SetScene(ctx, sceneID)
	ack = Ack{
		Kind:    narrative.KindScene,
		ID:      sceneID,
		Message: fmt.Sprintf("Scene '%s' saved (scene_id=%s).", text(scene["title"]), sceneID),
	}
	span.SetAttributes(attribute.String("narrative.scene_id", sceneID))
	s.log.Info("scene saved", "session_id", tr.SessionID(), "scene_id", sceneID, "mutations", len(muts))
	s.record(ctx, tr, "SaveScene", events.SceneSaved, ack)
	return ack, nil
}

// SaveChoices stores a batch of choices offered by the current scene. The whole
// batch is validated before anything is written.
func (s *Store) SaveChoices(ctx context.Context, tr *continuity.Tracker, raw any) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "SaveChoices", tr)
	defer func() { observability.EndSpan(span, err) }()
	if tr == nil {
		return Ack{}, fmt.Errorf("store: session required")
	}

	v, err := payload.Normalize(narrative.KindChoiceList, raw)
	if err != nil {
		return Ack{}, err
	}
	if err := schema.Validate(narrative.KindChoiceList, v.List); err != nil {
		return Ack{}, err
	}
	worldID, sceneID, err := tr.Position()
	if err != nil {
		return Ack{}, err
	}

	sceneRef := graph.NodeRef{Label: narrative.LabelScene, ID: sceneID}
	ids := make([]string, 0, len(v.List))
	muts := make([]graph.Mutation, 0, 2*len(v.List))
	for _, choice := range v.List {
		ref := graph.NodeRef{Label: narrative.LabelChoice, ID: s.namer.Choice(worldID, sceneID, choice["choice_id"])}
		choice["choice_id"] = ref.ID
		ids = append(ids, ref.ID)
		muts = append(muts,
			graph.MergeNode(ref, choice),
			graph.MergeEdge(sceneRef, narrative.RelOffers, ref, nil),
		)
	}

	rctx, cancel := s.roundTrip(ctx)
	defer cancel()
	if err := s.backend.Apply(rctx, muts); err != nil {
		return Ack{}, nerrors.Store("SaveChoices", err)
	}

	ack = Ack{
		Kind:    narrative.KindChoice,
		ID:      sceneID,
		IDs:     ids,
		Message: fmt.Sprintf("%d choices saved and linked to Scene (scene_id=%s): %s.", len(ids), sceneID, strings.Join(ids, ", ")),
	}
	span.SetAttributes(attribute.Int("narrative.choices", len(ids)))
	s.log.Info("choices saved", "session_id", tr.SessionID(), "scene_id", sceneID, "count", len(ids))
	s.record(ctx, tr, "SaveChoices", events.ChoicesSaved, ack)
	return ack, nil
}

// AttachPregame links the current scene to the current world as its opening scene.
func (s *Store) AttachPregame(ctx context.Context, tr *continuity.Tracker) (Ack, error) {
	if tr == nil {
		return Ack{}, fmt.Errorf("store: session required")
	}
	worldID, sceneID, err := tr.Position()
	if err != nil {
		return Ack{}, err
	}
	return s.LinkPregame(ctx, tr, sceneID, worldID)
}

// LinkPregame creates World -[OPENS_WITH {type: "pregame"}]-> Scene. Both nodes must exist.
func (s *Store) LinkPregame(ctx context.Context, tr *continuity.Tracker, sceneID, worldID string) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "LinkPregame", tr)
	defer func() { observability.EndSpan(span, err) }()

	worldRef := graph.NodeRef{Label: narrative.LabelWorld, ID: strings.TrimSpace(worldID)}
	sceneRef := graph.NodeRef{Label: narrative.LabelScene, ID: strings.TrimSpace(sceneID)}
	if worldRef.ID == "" {
		return Ack{}, nerrors.ErrNoActiveWorld
	}
	if sceneRef.ID == "" {
		return Ack{}, nerrors.ErrNoActiveScene
	}

	rctx, cancel := s.roundTrip(ctx)
	defer cancel()
	err = s.backend.Apply(rctx, []graph.Mutation{
		graph.MergeEdge(worldRef, narrative.RelOpensWith, sceneRef, map[string]any{"type": narrative.PregameEdgeType}),
	})
	if err != nil {
		return Ack{}, nerrors.Store("LinkPregame", err)
	}

	ack = Ack{
		Kind:    narrative.KindScene,
		ID:      sceneRef.ID,
		Message: fmt.Sprintf("Pregame Scene (scene_id=%s) linked to World (world_id=%s).", sceneRef.ID, worldRef.ID),
	}
	s.log.Info("pregame linked", "session_id", sessionOf(tr), "world_id", worldRef.ID, "scene_id", sceneRef.ID)
	s.record(ctx, tr, "LinkPregame", events.PregameLinked, ack)
	return ack, nil
}

// LinkChoiceToScene records that choiceID leads to sceneID. The target scene must
// already be stored; repeating the call leaves a single edge.
func (s *Store) LinkChoiceToScene(ctx context.Context, tr *continuity.Tracker, choiceID, sceneID string) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "LinkChoiceToScene", tr)
	defer func() { observability.EndSpan(span, err) }()

	choiceRef := graph.NodeRef{Label: narrative.LabelChoice, ID: strings.TrimSpace(choiceID)}
	sceneRef := graph.NodeRef{Label: narrative.LabelScene, ID: strings.TrimSpace(sceneID)}
	if choiceRef.ID == "" || sceneRef.ID == "" {
		return Ack{}, nerrors.Empty("LEADS_TO endpoints")
	}

	rctx, cancel := s.roundTrip(ctx)
	defer cancel()
	if err := s.backend.Apply(rctx, []graph.Mutation{
		graph.MergeEdge(choiceRef, narrative.RelLeadsTo, sceneRef, nil),
	}); err != nil {
		return Ack{}, nerrors.Store("LinkChoiceToScene", err)
	}

	ack = Ack{
		Kind:    narrative.KindChoice,
		ID:      choiceRef.ID,
		Message: fmt.Sprintf("Choice (choice_id=%s) leads to Scene (scene_id=%s).", choiceRef.ID, sceneRef.ID),
	}
	s.log.Info("choice linked", "session_id", sessionOf(tr), "choice_id", choiceRef.ID, "scene_id", sceneRef.ID)
	s.record(ctx, tr, "LinkChoiceToScene", events.ChoiceLinked, ack)
	return ack, nil
}

func (s *Store) npcRef(worldID string, npc map[string]any) graph.NodeRef {
	ref := graph.NodeRef{Label: narrative.LabelNPC, ID: s.namer.NPC(worldID, npc["npc_id"])}
	npc["npc_id"] = ref.ID
	return ref
}

// objects returns copies of the object elements of a list value, so stamping ids
// never reaches the caller's maps.
func objects(v any) []map[string]any {
	var in []map[string]any
	switch t := v.(type) {
	case []map[string]any:
		in = t
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				in = append(in, m)
			}
		}
	}
	out := make([]map[string]any, 0, len(in))
	for _, m := range in {
		out = append(out, without(m))
	}
	return out
}

func without(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func text(v any) string {
	s, _ := v.(string)
	return s
}
