package ocr

import "strings"

// BlockKind classifies a FormBlock.
type BlockKind string

const (
	BlockKey       BlockKind = "key"
	BlockValue     BlockKind = "value"
	BlockWord      BlockKind = "word"
	BlockSelection BlockKind = "selection"
)

// FormBlock is one form-analysis block. Keys and values reference their words
// by ID, and keys reference their values the same way. Referenced blocks may
// arrive on a later result page.
type FormBlock struct {
	ID       string
	Kind     BlockKind
	Text     string
	Selected bool
	Children []string
	Values   []string
}

// ResolveForms turns key blocks into "key text" -> "value text". References to
// blocks that never arrived are skipped. The first key with a given text wins.
func ResolveForms(blocks []FormBlock) map[string]string {
	byID := make(map[string]FormBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	out := make(map[string]string)
	for _, b := range blocks {
		if b.Kind != BlockKey {
			continue
		}
		key := normalizeKey(childText(b, byID))
		if key == "" {
			continue
		}
		var value string
		for _, id := range b.Values {
			if vb, ok := byID[id]; ok {
				value = strings.TrimSpace(value + " " + childText(vb, byID))
			}
		}
		if _, seen := out[key]; !seen {
			out[key] = value
		}
	}
	return out
}

func childText(b FormBlock, byID map[string]FormBlock) string {
	var parts []string
	for _, id := range b.Children {
		child, ok := byID[id]
		if !ok {
			continue
		}
		switch child.Kind {
		case BlockWord:
			parts = append(parts, child.Text)
		case BlockSelection:
			if child.Selected {
				parts = append(parts, "X")
			}
		}
	}
	return strings.Join(parts, " ")
}

func normalizeKey(k string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(k), ":"))
}
