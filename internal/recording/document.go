package recording

import (
	"encoding/json"
	"unicode/utf8"
)

// Document is a decoded capabilities or initial state blob. Keys the
// caller does not know about are kept as-is.
type Document map[string]any

// String returns the string at key, or def.
func (d Document) String(key, def string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return def
}

// Int returns the number at key truncated to int64, or def.
func (d Document) Int(key string, def int64) int64 {
	switch v := d[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return def
}

// Float returns the number at key, or def.
func (d Document) Float(key string, def float64) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

// Bool returns the boolean at key, or def.
func (d Document) Bool(key string, def bool) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return def
}

// Sub returns the nested object at key, or an empty Document.
func (d Document) Sub(key string) Document {
	if v, ok := d[key].(map[string]any); ok {
		return Document(v)
	}
	return Document{}
}

// Keys returns the top-level keys in no particular order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// parseDocument decodes a blob as UTF-8 JSON holding an object.
// An empty blob or a JSON null decodes to an empty Document.
func parseDocument(name string, blob []byte, offset int64) (Document, error) {
	if len(blob) == 0 {
		return Document{}, nil
	}
	if !utf8.Valid(blob) {
		return nil, decodeErr(InvalidPayload, offset, "%s blob is not valid UTF-8", name)
	}
	var doc map[string]any
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, &DecodeError{Kind: InvalidPayload, Offset: offset, Msg: name + " blob", Err: err}
	}
	if doc == nil {
		return Document{}, nil
	}
	return Document(doc), nil
}

// sliceSection returns buf[off:off+n] or an OffsetOutOfRange error.
func sliceSection(buf []byte, name string, off uint64, n uint32) ([]byte, error) {
	end := off + uint64(n)
	if off > uint64(len(buf)) || end > uint64(len(buf)) || end < off {
		return nil, decodeErr(OffsetOutOfRange, int64(off), "%s section [%d, %d) exceeds file size %d", name, off, end, len(buf))
	}
	return buf[off:end], nil
}
