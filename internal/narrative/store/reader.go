package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/loregraph/internal/data/graph"
	"github.com/yungbote/loregraph/internal/domain/narrative"
	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/observability"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

// ChoicesForCurrentScene returns the distinct choices the current scene offers.
// Order is not meaningful.
func (s *Store) ChoicesForCurrentScene(ctx context.Context, tr *continuity.Tracker) (out []narrative.Choice, err error) {
	ctx, span := s.startSpan(ctx, "ChoicesForCurrentScene", tr)
	defer func() { observability.EndSpan(span, err) }()
	if tr == nil {
		return nil, fmt.Errorf("store: session required")
	}

	sceneID, err := tr.Scene()
	if err != nil {
		return nil, err
	}
	rctx, cancel := s.roundTrip(ctx)
	defer cancel()
	nodes, err := s.backend.Related(rctx, graph.NodeRef{Label: narrative.LabelScene, ID: sceneID}, narrative.RelOffers, narrative.LabelChoice)
	if err != nil {
		return nil, nerrors.Store("ChoicesForCurrentScene", err)
	}

	out = make([]narrative.Choice, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, narrative.ChoiceFromProps(n.Props))
	}
	span.SetAttributes(attribute.Int("narrative.choices", len(out)))
	return out, nil
}
