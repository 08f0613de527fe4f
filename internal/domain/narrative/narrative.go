package narrative

// Kind names the payload shapes the store accepts.
type Kind string

const (
	KindWorld      Kind = "World"
	KindScene      Kind = "Scene"
	KindChoice     Kind = "Choice"
	KindChoiceList Kind = "ChoiceList"
	KindNPC        Kind = "NPC"
	KindFaction    Kind = "Faction"
)

func (k Kind) String() string { return string(k) }

// Label is a node label in the story graph.
type Label string

const (
	LabelWorld   Label = "World"
	LabelScene   Label = "Scene"
	LabelChoice  Label = "Choice"
	LabelNPC     Label = "NPC"
	LabelFaction Label = "Faction"
)

// KeyProperty is the merge key for nodes carrying the label.
func (l Label) KeyProperty() string {
	switch l {
	case LabelWorld:
		return "world_id"
	case LabelScene:
		return "scene_id"
	case LabelChoice:
		return "choice_id"
	case LabelNPC:
		return "npc_id"
	case LabelFaction:
		return "faction_id"
	default:
		return ""
	}
}

func (l Label) Valid() bool { return l.KeyProperty() != "" }

// Labels lists every node label, in a stable order.
func Labels() []Label {
	return []Label{LabelWorld, LabelScene, LabelChoice, LabelNPC, LabelFaction}
}

// RelType is a relationship type in the story graph.
type RelType string

const (
	RelHasFaction RelType = "HAS_FACTION"
	RelHasNPC     RelType = "HAS_NPC"
	RelOpensWith  RelType = "OPENS_WITH"
	RelOffers     RelType = "OFFERS"
	RelLeadsTo    RelType = "LEADS_TO"
)

func (r RelType) Valid() bool {
	switch r {
	case RelHasFaction, RelHasNPC, RelOpensWith, RelOffers, RelLeadsTo:
		return true
	default:
		return false
	}
}

// PregameEdgeType is the `type` property stamped on the OPENS_WITH edge.
const PregameEdgeType = "pregame"

type Choice struct {
	ChoiceID    string `json:"choice_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Narration   string `json:"narration"`
	Consequence string `json:"consequence"`

	// Properties holds every stored property, enrichment fields included.
	Properties map[string]any `json:"properties,omitempty"`
}

// ChoiceFromProps rebuilds a Choice from stored node properties.
func ChoiceFromProps(props map[string]any) Choice {
	return Choice{
		ChoiceID:    str(props["choice_id"]),
		Title:       str(props["title"]),
		Description: str(props["description"]),
		Narration:   str(props["narration"]),
		Consequence: str(props["consequence"]),
		Properties:  props,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
