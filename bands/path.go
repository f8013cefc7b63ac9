package bands

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path with optional indices, such as
// "orders.items" or "rows[0].lines", against JSON-shaped data. A leading
// "data." is ignored when the root has no "data" key.
func Lookup(root any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return root, true
	}
	if rest, ok := strings.CutPrefix(path, "data."); ok {
		if m, isMap := root.(map[string]any); !isMap || m["data"] == nil {
			path = rest
		}
	}
	cur := root
	for _, seg := range splitPath(path) {
		if seg.index >= 0 {
			items, ok := Sequence(cur)
			if !ok || seg.index >= len(items) {
				return nil, false
			}
			cur = items[seg.index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg.key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

type segment struct {
	key   string
	index int
}

func splitPath(path string) []segment {
	var out []segment
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				out = append(out, segment{key: part, index: -1})
				break
			}
			if open > 0 {
				out = append(out, segment{key: part[:open], index: -1})
			}
			end := strings.IndexByte(part[open:], ']')
			if end < 0 {
				out = append(out, segment{key: part[open:], index: -1})
				break
			}
			n, err := strconv.Atoi(part[open+1 : open+end])
			if err != nil || n < 0 {
				out = append(out, segment{key: part[open+1 : open+end], index: -1})
			} else {
				out = append(out, segment{index: n})
			}
			part = part[open+end+1:]
		}
	}
	return out
}

// Sequence converts v to a slice when it is one.
func Sequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
