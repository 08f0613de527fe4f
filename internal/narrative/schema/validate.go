package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

var printer = message.NewPrinter(language.English)

// Validate checks value against the schema for kind and returns the first violation
// as a *errors.SchemaViolation. KindChoiceList validates every element with the
// Choice schema. Fields not declared by a schema are accepted.
func Validate(kind narrative.Kind, value any) error {
	reg, err := load()
	if err != nil {
		return err
	}

	if kind == narrative.KindChoiceList {
		items, ok := value.([]map[string]any)
		if !ok {
			return &nerrors.SchemaViolation{Kind: narrative.KindChoice.String(), Index: -1, Path: "$", Message: "expected a list of choice objects"}
		}
		sch := reg.compiled[documentForKind[narrative.KindChoice]]
		for i, item := range items {
			if v := validateOne(sch, item); v != nil {
				v.Kind = narrative.KindChoice.String()
				v.Index = i
				return v
			}
		}
		return nil
	}

	name, ok := documentForKind[kind]
	if !ok {
		return fmt.Errorf("schema: no schema for kind %q", kind)
	}
	if v := validateOne(reg.compiled[name], value); v != nil {
		v.Kind = kind.String()
		return v
	}
	return nil
}

func validateOne(sch *jsonschema.Schema, value any) *nerrors.SchemaViolation {
	inst, err := instance(value)
	if err != nil {
		return &nerrors.SchemaViolation{Index: -1, Path: "$", Message: err.Error()}
	}
	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &nerrors.SchemaViolation{Index: -1, Path: "$", Message: err.Error()}
	}
	leaf := firstLeaf(verr)
	return &nerrors.SchemaViolation{
		Index:   -1,
		Path:    render(inst, leaf.InstanceLocation),
		Message: leaf.ErrorKind.LocalizedString(printer),
	}
}

// instance round-trips value through JSON so typed Go slices and maps reach
// the validator as plain []any / map[string]any.
func instance(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON encodable: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// firstLeaf picks the leaf error with the shallowest, then lexically smallest,
// instance location. The validator walks object keys in map order, so its own
// ordering is not stable between runs.
func firstLeaf(root *jsonschema.ValidationError) *jsonschema.ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(root)
	sort.SliceStable(leaves, func(i, j int) bool {
		a, b := leaves[i].InstanceLocation, leaves[j].InstanceLocation
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		if ka, kb := strings.Join(a, "/"), strings.Join(b, "/"); ka != kb {
			return ka < kb
		}
		return leaves[i].ErrorKind.LocalizedString(printer) < leaves[j].ErrorKind.LocalizedString(printer)
	})
	return leaves[0]
}

// render turns instance location tokens into $.a.b[0].c, using the instance
// itself to tell array indices from object keys.
func render(inst any, loc []string) string {
	var sb strings.Builder
	sb.WriteString("$")
	cur := inst
	for _, tok := range loc {
		switch node := cur.(type) {
		case []any:
			sb.WriteString("[" + tok + "]")
			cur = nil
			if i, err := strconv.Atoi(tok); err == nil && i >= 0 && i < len(node) {
				cur = node[i]
			}
		case map[string]any:
			sb.WriteString("." + tok)
			cur = node[tok]
		default:
			sb.WriteString("." + tok)
			cur = nil
		}
	}
	return sb.String()
}
