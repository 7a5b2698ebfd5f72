package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties holds the members of a JSON object that the receiving type does
// not declare. They are written back next to the declared fields on encode,
// so a value decoded from a newer API version re-encodes without loss.
//
// Properties is immutable. The zero value is an empty bag.
type Properties struct {
	m *orderedmap.OrderedMap[string, json.RawMessage]
}

// With returns a copy of p with key set to value. A nil value is stored as
// an explicit JSON null.
func (p Properties) With(key string, value json.RawMessage) Properties {
	out := orderedmap.New[string, json.RawMessage]()
	if p.m != nil {
		for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	if value == nil {
		value = json.RawMessage("null")
	}
	out.Set(key, value)
	return Properties{m: out}
}

// Get returns the raw value stored under key.
func (p Properties) Get(key string) (json.RawMessage, bool) {
	if p.m == nil {
		return nil, false
	}
	return p.m.Get(key)
}

// Len returns the number of stored members.
func (p Properties) Len() int {
	if p.m == nil {
		return 0
	}
	return p.m.Len()
}

// Keys returns the stored member names in insertion order.
func (p Properties) Keys() []string {
	if p.m == nil {
		return nil
	}
	keys := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// ============================================================================
// Encoding
// ============================================================================

// encodeObject marshals v, which must encode to a JSON object, then puts the
// "type" discriminator in front when tag is set and flattens extra after the
// declared members. Extra keys that collide with a declared member or the
// discriminator are dropped.
func encodeObject(tag string, v any, extra Properties) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) < 2 || data[0] != '{' {
		return nil, fmt.Errorf("anthropic: %T does not encode to a JSON object", v)
	}
	if tag == "" && extra.Len() == 0 {
		return data, nil
	}

	members := data[1 : len(data)-1]
	var buf bytes.Buffer
	buf.Grow(len(data) + 32)
	buf.WriteByte('{')
	if tag != "" {
		buf.WriteString(`"type":`)
		quoted, _ := json.Marshal(tag)
		buf.Write(quoted)
		if len(members) > 0 {
			buf.WriteByte(',')
		}
	}
	buf.Write(members)

	if extra.Len() > 0 {
		declared := memberNames(data)
		if tag != "" {
			declared["type"] = struct{}{}
		}
		wrote := len(members) > 0 || tag != ""
		for pair := extra.m.Oldest(); pair != nil; pair = pair.Next() {
			if _, ok := declared[pair.Key]; ok {
				continue
			}
			key, _ := json.Marshal(pair.Key)
			value, err := compactRaw(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("anthropic: additional property %q: %w", pair.Key, err)
			}
			if wrote {
				buf.WriteByte(',')
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
			wrote = true
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func memberNames(object []byte) map[string]struct{} {
	names := map[string]struct{}{}
	gjson.ParseBytes(object).ForEach(func(key, _ gjson.Result) bool {
		names[key.String()] = struct{}{}
		return true
	})
	return names
}

func compactRaw(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ============================================================================
// Decoding
// ============================================================================

// decodeOpen unmarshals data into dst and returns every member of the object
// that is not a declared json field of T. The "type" discriminator is never
// treated as an unknown member.
func decodeOpen[T any](data []byte, dst *T) (Properties, error) {
	known := declaredFields(reflect.TypeFor[T]())
	if err := json.Unmarshal(exactMembers(data, known), dst); err != nil {
		return Properties{}, err
	}
	return sweepUnknown(data, known)
}

// exactMembers keeps only the members of object whose names match a known
// field exactly. encoding/json folds case when matching fields, so "TTL"
// would otherwise fill the "ttl" field and also be swept into Extra.
func exactMembers(object []byte, known map[string]struct{}) []byte {
	parsed := gjson.ParseBytes(object)
	if !parsed.IsObject() {
		return object
	}
	var buf bytes.Buffer
	buf.Grow(len(object))
	buf.WriteByte('{')
	first := true
	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, ok := known[name]; !ok && name != "type" {
			return true
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.WriteString(key.Raw)
		buf.WriteByte(':')
		buf.WriteString(value.Raw)
		first = false
		return true
	})
	buf.WriteByte('}')
	return buf.Bytes()
}

func sweepUnknown(data []byte, known map[string]struct{}) (Properties, error) {
	var (
		extra Properties
		err   error
	)
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "type" {
			return true
		}
		if _, ok := known[name]; ok {
			return true
		}
		var raw json.RawMessage
		raw, err = compactRaw(json.RawMessage(value.Raw))
		if err != nil {
			return false
		}
		if extra.m == nil {
			extra.m = orderedmap.New[string, json.RawMessage]()
		}
		extra.m.Set(name, raw)
		return true
	})
	return extra, err
}

var fieldCache sync.Map // reflect.Type -> map[string]struct{}

// declaredFields lists the JSON member names encoding/json would map onto t.
func declaredFields(t reflect.Type) map[string]struct{} {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	fields := map[string]struct{}{}
	collectFields(t, fields)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, fields map[string]struct{}) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			collectFields(f.Type, fields)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = struct{}{}
	}
}
