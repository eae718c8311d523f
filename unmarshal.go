package trap

import (
	"encoding/json"
	"sort"
	"sync/atomic"
)

// counter for global order of all unmarshalled orderedKeys
var keyPosCounter uint64

type orderedKey struct {
	key string
	pos uint64
}

func (p *orderedKey) UnmarshalText(text []byte) error {
	p.key = string(text)
	p.pos = atomic.AddUint64(&keyPosCounter, 1)
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type orderedKeys []orderedKey

func (o orderedKeys) Len() int {
	return len(o)
}

func (o orderedKeys) Less(i, j int) bool {
	return o[i].pos < o[j].pos
}

func (o orderedKeys) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
}

// sortedKeys returns the keys of the given map in the order they appeared in the JSON document.
func sortedKeys(f map[orderedKey]valOrMap) orderedKeys {
	keys := make(orderedKeys, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Sort(keys)
	return keys
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type valOrMap struct {
	val interface{}
	m   map[orderedKey]valOrMap
}

func (s *valOrMap) UnmarshalJSON(b []byte) error {
	err := json.Unmarshal(b, &s.m)
	if err == nil {
		return nil
	}
	s.m = nil
	return json.Unmarshal(b, &s.val)
}

// Get returns the unmarshalled value. JSON objects are returned as nested Context.
func (s valOrMap) Get() interface{} {
	if s.m != nil {
		c := Context{}
		c.unmarshalFrom(s.m)
		return c
	}
	return s.val
}
