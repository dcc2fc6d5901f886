package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Results is the raw scrape-results mapping from the collection pipeline.
// Values are loosely typed on the wire: strings, lists of strings, or lists
// of nested objects. Anything else is carried but ignored. Field order from
// the wire is preserved so normalization is deterministic for a payload.
type Results struct {
	fields []resultField
}

type resultField struct {
	name  string
	value fieldValue
}

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldList
	fieldUnsupported
)

// fieldValue is the tagged variant behind one mapping entry. Unsupported
// values keep their wire form in raw for re-encoding.
type fieldValue struct {
	kind fieldKind
	str  string
	list []listItem
	raw  json.RawMessage
}

// listItem is one element of a list-valued field. Non-string elements keep
// their wire form in raw so the mapping re-encodes faithfully; str carries
// the element's text contribution and stays empty for elements that
// normalization skips.
type listItem struct {
	isString bool
	str      string
	raw      json.RawMessage
}

// UnmarshalJSON decodes the mapping with a token walk instead of a plain
// map so that key order survives.
func (r *Results) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		r.fields = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("results must be a JSON object, got %v", tok)
	}

	r.fields = r.fields[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		r.fields = append(r.fields, resultField{name: key, value: parseFieldValue(raw)})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON round-trips the mapping in its original order.
func (r Results) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (v fieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case fieldString:
		return json.Marshal(v.str)
	case fieldList:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				b.WriteByte(',')
			}
			if it.isString {
				s, err := json.Marshal(it.str)
				if err != nil {
					return nil, err
				}
				b.Write(s)
				continue
			}
			b.Write(it.raw)
		}
		b.WriteByte(']')
		return b.Bytes(), nil
	default:
		if len(v.raw) > 0 {
			return v.raw, nil
		}
		return []byte("null"), nil
	}
}

func parseFieldValue(raw json.RawMessage) fieldValue {
	// json.Unmarshal treats null as a no-op on a string target, so the
	// literal must be caught before the string attempt.
	if isNull(raw) {
		return fieldValue{kind: fieldUnsupported, raw: json.RawMessage(compact(raw))}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return fieldValue{kind: fieldString, str: s}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		v := fieldValue{kind: fieldList}
		for _, item := range items {
			if !isNull(item) {
				var is string
				if err := json.Unmarshal(item, &is); err == nil {
					v.list = append(v.list, listItem{isString: true, str: is})
					continue
				}
				var obj map[string]any
				if err := json.Unmarshal(item, &obj); err == nil {
					// Nested objects are stringified as a fallback,
					// not structurally flattened.
					c := compact(item)
					v.list = append(v.list, listItem{str: c, raw: json.RawMessage(c)})
					continue
				}
			}
			// Nulls, numbers, bools, nested arrays contribute no text
			// but still re-encode as received.
			v.list = append(v.list, listItem{raw: json.RawMessage(compact(item))})
		}
		return v
	}

	return fieldValue{kind: fieldUnsupported, raw: json.RawMessage(compact(raw))}
}

// Normalize flattens the mapping into one text blob: every string value and
// every string element of list values, concatenated in field order with
// single spaces. Unsupported values are skipped silently; an empty mapping
// yields an empty string.
func (r Results) Normalize() string {
	var parts []string
	for _, f := range r.fields {
		switch f.value.kind {
		case fieldString:
			parts = append(parts, f.value.str)
		case fieldList:
			for _, item := range f.value.list {
				if item.isString || item.str != "" {
					parts = append(parts, item.str)
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

// Len reports how many fields the mapping carries.
func (r Results) Len() int { return len(r.fields) }

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
