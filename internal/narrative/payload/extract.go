package payload

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

var fencedJSON = regexp.MustCompile("(?s)```json(.*?)```")

// ExtractJSON pulls a JSON document out of free-form generator text.
// It tries, in order: the whole text, the first ```json fenced block, and the
// outermost {...} or [...] span, whichever opens first.
func ExtractJSON(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nerrors.Malformed("generator output", fmt.Errorf("empty text"))
	}

	var out any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		block := strings.TrimSpace(m[1])
		if err := json.Unmarshal([]byte(block), &out); err != nil {
			return nil, nerrors.Malformed("generator output", fmt.Errorf("fenced json block: %w", err))
		}
		return out, nil
	}

	// The span whose opening bracket appears first wins, so a list of objects
	// is not mistaken for its first element.
	spans := [][2]string{{"{", "}"}, {"[", "]"}}
	if arr := strings.Index(text, "["); arr >= 0 {
		if obj := strings.Index(text, "{"); obj < 0 || arr < obj {
			spans[0], spans[1] = spans[1], spans[0]
		}
	}
	for _, pair := range spans {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil {
			return out, nil
		}
	}

	return nil, nerrors.Malformed("generator output", fmt.Errorf("no JSON document found"))
}
