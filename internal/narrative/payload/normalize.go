// Package payload turns loosely-shaped generator output into the canonical
// object (World, Scene) or list-of-objects (ChoiceList) the store validates.
//
// Normalization runs an ordered list of rules. Each rule fires at most once:
// text is decoded as JSON, then each alias tier for the kind unwraps its key
// if present. The surviving value is then shape-checked.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

// Value is a normalized payload. Object is set for World and Scene, List for ChoiceList.
type Value struct {
	Kind   narrative.Kind
	Object map[string]any
	List   []map[string]any
}

var aliasTiers = map[narrative.Kind][]string{
	narrative.KindWorld:      {"world_json", "world"},
	narrative.KindScene:      {"scene_json", "scene"},
	narrative.KindChoiceList: {"choices_json", "choices"},
}

// Aliases returns the wrapper keys recognised for kind, in the order they are tried.
func Aliases(kind narrative.Kind) []string {
	return append([]string(nil), aliasTiers[kind]...)
}

type rule struct {
	name   string
	match  func(v any) bool
	unwrap func(v any) (any, error)
}

func rulesFor(kind narrative.Kind) []rule {
	rules := []rule{{
		name:  "decode_text",
		match: isText,
		unwrap: func(v any) (any, error) {
			return decodeText(kind, v)
		},
	}}
	for _, alias := range aliasTiers[kind] {
		alias := alias
		rules = append(rules, rule{
			name: "alias:" + alias,
			match: func(v any) bool {
				m, ok := v.(map[string]any)
				if !ok {
					return false
				}
				_, ok = m[alias]
				return ok
			},
			unwrap: func(v any) (any, error) {
				inner := v.(map[string]any)[alias]
				if isText(inner) {
					return decodeText(kind, inner)
				}
				return inner, nil
			},
		})
	}
	return rules
}

// Normalize unwraps payload for kind. It never mutates payload.
func Normalize(kind narrative.Kind, payload any) (Value, error) {
	if _, ok := aliasTiers[kind]; !ok {
		return Value{}, fmt.Errorf("payload: unsupported kind %q", kind)
	}
	if payload == nil {
		return Value{}, nerrors.Empty(kind.String())
	}

	cur := payload
	for _, r := range rulesFor(kind) {
		if !r.match(cur) {
			continue
		}
		next, err := r.unwrap(cur)
		if err != nil {
			return Value{}, err
		}
		cur = next
	}

	if kind == narrative.KindChoiceList {
		list, err := asObjectList(kind, cur)
		if err != nil {
			return Value{}, err
		}
		if len(list) == 0 {
			return Value{}, nerrors.Empty(kind.String())
		}
		return Value{Kind: kind, List: list}, nil
	}

	obj, ok := cur.(map[string]any)
	if !ok {
		return Value{}, &nerrors.ShapeError{Kind: kind.String(), Expected: "object", Actual: describe(cur)}
	}
	if len(obj) == 0 {
		return Value{}, nerrors.Empty(kind.String())
	}
	return Value{Kind: kind, Object: cloneMap(obj)}, nil
}

func asObjectList(kind narrative.Kind, v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case []map[string]any:
		out := make([]map[string]any, 0, len(t))
		for _, m := range t {
			out = append(out, cloneMap(m))
		}
		return out, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &nerrors.ShapeError{
					Kind:     fmt.Sprintf("%s[%d]", kind, i),
					Expected: "object",
					Actual:   describe(item),
				}
			}
			out = append(out, cloneMap(m))
		}
		return out, nil
	default:
		return nil, &nerrors.ShapeError{Kind: kind.String(), Expected: "array of objects", Actual: describe(v)}
	}
}

func isText(v any) bool {
	switch v.(type) {
	case string, []byte, json.RawMessage:
		return true
	default:
		return false
	}
}

func decodeText(kind narrative.Kind, v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nerrors.Malformed(kind.String(), fmt.Errorf("empty text"))
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nerrors.Malformed(kind.String(), err)
	}
	return out, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any, []map[string]any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// cloneMap copies the top level so later id stamping never leaks into the caller's map.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
