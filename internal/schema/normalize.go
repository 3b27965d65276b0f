package schema

import (
	"strings"
	"unicode"
)

// maxFlattenDepth bounds recursive flattening of nested payloads so a
// pathological response cannot expand into an unbounded column set.
const maxFlattenDepth = 3

// NormalizeKey converts a raw field name to its canonical lowerCamelCase
// form. Exchange payloads mix snake_case, kebab-case and camelCase for the
// same semantic field; all three normalize to the same canonical key, e.g.
// "best_bid", "best-bid" and "bestBid" all yield "bestBid".
func NormalizeKey(raw string) string {
	if raw == "" {
		return raw
	}
	if !strings.ContainsAny(raw, "_-") {
		return raw
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0][:1]))
	b.WriteString(parts[0][1:])
	for _, p := range parts[1:] {
		b.WriteString(capitalize(p))
	}
	return b.String()
}

// JoinKeys produces the canonical key for a child field flattened out of a
// nested sub-object, e.g. parent "fee" and child "cost" join to "feeCost".
func JoinKeys(parent, child string) string {
	if parent == "" {
		return NormalizeKey(child)
	}
	return NormalizeKey(parent) + capitalize(NormalizeKey(child))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Flatten normalizes every key of a raw record and recursively flattens
// nested sub-objects into prefixed canonical keys. Keys colliding after
// normalization resolve last-write-wins; callers are expected to feed
// records from a single contract at a time. Depth is bounded by
// maxFlattenDepth; deeper sub-objects are kept as-is under their prefix.
func Flatten(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	flattenInto(out, "", record, 0)
	return out
}

func flattenInto(out map[string]any, prefix string, in map[string]any, depth int) {
	for k, v := range in {
		key := NormalizeKey(k)
		if prefix != "" {
			key = prefix + capitalize(key)
		}
		nested, ok := v.(map[string]any)
		if ok && depth < maxFlattenDepth {
			flattenInto(out, key, nested, depth+1)
			continue
		}
		out[key] = v
	}
}

// ExpandPath unnests one list-valued field of each record into one output
// record per element, prefixing element keys and carrying the remaining
// parent fields as meta columns. It mirrors record-path expansion of
// series payloads into per-event rows ("events" -> "event" prefix).
// Records without the path, or with an empty list, contribute no rows.
func ExpandPath(records []map[string]any, path, prefix string) []map[string]any {
	var out []map[string]any
	for _, rec := range records {
		raw, ok := rec[path]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			elem, ok := item.(map[string]any)
			if !ok {
				continue
			}
			row := make(map[string]any, len(elem)+len(rec))
			for k, v := range elem {
				row[JoinKeys(prefix, k)] = v
			}
			for k, v := range rec {
				if k == path {
					continue
				}
				if _, exists := row[NormalizeKey(k)]; !exists {
					row[NormalizeKey(k)] = v
				}
			}
			out = append(out, row)
		}
	}
	return out
}
