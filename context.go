package trap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Context is the read-only key-value payload of a Fault. Keys are kept in insertion order.
//
// Values are restricted to strings, booleans, integers, floats, nil and nested Contexts, so that a Context can always
// be printed and marshaled to JSON. Values of other types are converted when the Context is created:
//   - maps with string keys (map[string]interface{}, map[string]int, ...) become nested Contexts (with sorted keys)
//   - errors are stored as err.Error()
//   - fmt.Stringers are stored as s.String()
//   - anything else is stored as fmt.Sprint(val)
type Context struct {
	m orderedMap
}

// NewContext creates a Context from the given key-value pairs. A trailing key without value is stored with the value
// "<missing>".
func NewContext(kvs ...interface{}) Context {
	c := Context{}
	c.m.Append(kvs...)
	return c
}

// Get returns the value stored under the given key and true, or nil and false if the key does not exist.
func (c Context) Get(key string) (interface{}, bool) {
	return c.m.Get(key)
}

// Len returns the number of keys.
func (c Context) Len() int {
	return len(c.m) / 2
}

// Keys returns the keys in insertion order.
func (c Context) Keys() []string {
	keys := make([]string, 0, c.Len())
	for i := 0; i+1 < len(c.m); i += 2 {
		keys = append(keys, c.m[i].(string))
	}
	return keys
}

// Map returns a copy of the context as a regular map. Nested contexts are converted to maps as well.
func (c Context) Map() map[string]interface{} {
	res := make(map[string]interface{}, c.Len())
	for i := 0; i+1 < len(c.m); i += 2 {
		val := c.m[i+1]
		if nested, ok := val.(Context); ok {
			val = nested.Map()
		}
		res[c.m[i].(string)] = val
	}
	return res
}

// String returns the context in the form "{k1:v1, k2:v2}".
func (c Context) String() string {
	return c.m.String()
}

// MarshalJSON marshals the context as JSON object, retaining the order of the keys.
func (c Context) MarshalJSON() ([]byte, error) {
	b := &bytes.Buffer{}
	b.WriteByte('{')
	for i := 0; i+1 < len(c.m); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		bts, err := json.Marshal(c.m[i])
		if err != nil {
			return nil, err
		}
		b.Write(bts)
		b.WriteByte(':')
		bts, err = json.Marshal(c.m[i+1])
		if err != nil {
			return nil, err
		}
		b.Write(bts)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON unmarshals the given JSON object, retaining the order of its keys. Numbers are decoded as float64.
func (c *Context) UnmarshalJSON(b []byte) error {
	fields := make(map[orderedKey]valOrMap)
	err := json.Unmarshal(b, &fields)
	if err != nil {
		return err
	}
	c.unmarshalFrom(fields)
	return nil
}

func (c *Context) unmarshalFrom(f map[orderedKey]valOrMap) {
	c.m = nil
	c.m.Grow(len(f) * 2)
	for _, key := range sortedKeys(f) {
		c.m.Set(key.key, f[key].Get())
	}
}

// contextFromMap converts the given map to a Context. Map iteration order is random, so keys are sorted.
func contextFromMap(m map[string]interface{}) Context {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := Context{}
	c.m.Grow(len(keys) * 2)
	for _, k := range keys {
		c.m.Set(k, m[k])
	}
	return c
}

// normalize converts the given value to one of the value shapes permitted in a Context.
func normalize(val interface{}) interface{} {
	switch v := val.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		Context:
		return v
	case map[string]interface{}:
		return contextFromMap(v)
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}
	if m, ok := stringKeyedMap(val); ok {
		return contextFromMap(m)
	}
	return fmt.Sprint(val)
}

// stringKeyedMap converts maps with keys of kind string to a map[string]interface{}.
func stringKeyedMap(val interface{}) (map[string]interface{}, bool) {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	res := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		res[iter.Key().String()] = iter.Value().Interface()
	}
	return res, true
}

// orderedMap stores key-value pairs in a flat slice in insertion order. Values are normalized on insertion.
//
// Warning: this type should only be used to store a small number of KV pairs with infrequent modifications and lookups.
type orderedMap []interface{}

func (a *orderedMap) Append(kvs ...interface{}) {
	l2 := (len(kvs) + 1) / 2 * 2
	a.Grow(l2)
	for i := 0; i+1 < len(kvs); i += 2 {
		a.Set(toString(kvs[i]), kvs[i+1])
	}
	if l2 > len(kvs) {
		a.Set(toString(kvs[len(kvs)-1]), "<missing>")
	}
}

func (a *orderedMap) Set(key string, val interface{}) {
	val = normalize(val)
	for i := 0; i+1 < len(*a); i += 2 {
		if (*a)[i] == key {
			(*a)[i+1] = val
			return
		}
	}
	*a = append(*a, key, val)
}

func (a orderedMap) Get(key string) (interface{}, bool) {
	for i := 0; i+1 < len(a); i += 2 {
		if a[i] == key {
			return a[i+1], true
		}
	}
	return nil, false
}

func (a orderedMap) String() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for i := 0; i+1 < len(a); i += 2 {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a[i].(string))
		sb.WriteString(":")
		sb.WriteString(fmt.Sprint(a[i+1]))
	}
	sb.WriteString("}")
	return sb.String()
}

func (a *orderedMap) Grow(i int) {
	newCap := len(*a) + i
	if newCap > cap(*a) {
		n := make([]interface{}, len(*a), newCap)
		copy(n, *a)
		*a = n
	}
}
