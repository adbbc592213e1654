package store

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"
)

// sortKey is the comparable form of one document's ordering field.
type sortKey struct {
	present bool
	isNum   bool
	num     float64
	isTime  bool
	at      time.Time
	str     string
	id      string
}

// sortDocuments orders bodies by q, breaking ties by id. Numbers compare
// numerically, RFC 3339 timestamps chronologically, everything else as
// strings. Documents missing the field sort first in ascending order.
func sortDocuments(bodies [][]byte, q Query) ([][]byte, error) {
	field := q.OrderBy
	if field == "" {
		field = "id"
	}

	keys := make([]sortKey, len(bodies))
	for i, body := range bodies {
		k, err := keyOf(body, field)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	idx := make([]int, len(bodies))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		c := compareKeys(keys[a], keys[b])
		if q.Descending {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(keys[a].id, keys[b].id)
		}
		return c
	})

	out := make([][]byte, len(bodies))
	for i, j := range idx {
		out[i] = bodies[j]
	}
	return out, nil
}

func keyOf(body []byte, field string) (sortKey, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return sortKey{}, err
	}

	var k sortKey
	if raw, ok := doc["id"]; ok {
		_ = json.Unmarshal(raw, &k.id)
	}

	raw, ok := doc[field]
	if !ok || string(raw) == "null" {
		return k, nil
	}
	k.present = true

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return sortKey{}, err
	}
	switch v := v.(type) {
	case float64:
		k.isNum, k.num = true, v
	case string:
		k.str = v
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			k.isTime, k.at = true, t
		}
	default:
		k.str = string(raw)
	}
	return k, nil
}

func compareKeys(a, b sortKey) int {
	switch {
	case !a.present || !b.present:
		return cmp.Compare(boolRank(a.present), boolRank(b.present))
	case a.isNum && b.isNum:
		return cmp.Compare(a.num, b.num)
	case a.isTime && b.isTime:
		return a.at.Compare(b.at)
	default:
		return cmp.Compare(a.str, b.str)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
