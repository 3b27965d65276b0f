package poly

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Query is an endpoint parameter bag. Nil values and empty slices are
// dropped during encoding so callers can pass every optional filter
// unconditionally.
type Query map[string]any

// Encode filters and serializes the query. Slices join into repeated
// parameters, timestamps render as ISO-8601 UTC.
func (q Query) Encode() url.Values {
	values := url.Values{}
	for key, raw := range q {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
			values.Add(key, v)
		case bool:
			values.Add(key, strconv.FormatBool(v))
		case int:
			values.Add(key, strconv.Itoa(v))
		case int64:
			values.Add(key, strconv.FormatInt(v, 10))
		case float64:
			values.Add(key, strconv.FormatFloat(v, 'f', -1, 64))
		case time.Time:
			values.Add(key, v.UTC().Format("2006-01-02T15:04:05")+"Z")
		case []string:
			for _, elem := range v {
				values.Add(key, elem)
			}
		case []int:
			for _, elem := range v {
				values.Add(key, strconv.Itoa(elem))
			}
		default:
			values.Add(key, fmt.Sprintf("%v", v))
		}
	}
	return values
}

// clone copies the query so pagination can rewrite limit/offset per page.
func (q Query) clone() Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}
