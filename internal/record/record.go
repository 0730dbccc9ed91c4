// Package record implements the multi-value record format used by the
// database server. A record is an ordered list of fields separated by field
// marks; a field may hold a single string or a list of values separated by
// value marks, and a value may in turn hold sub-values separated by sub-value
// marks. All marks are single bytes from the top of the 8-bit range.
package record

import "strings"

// Delimiter bytes, highest to lowest precedence. Text and segment marks are
// part of the mark family but carry no nesting in this codec.
const (
	SegmentMark  = "\xfa"
	TextMark     = "\xfb"
	SubvalueMark = "\xfc"
	ValueMark    = "\xfd"
	FieldMark    = "\xfe"
)

// Record is an ordered sequence of fields. Field positions are significant:
// position 0 holds the record ID and position 1 the record type tag for all
// entity files.
type Record struct {
	Fields []Field
}

// Field is either a scalar string or an ordered sequence of values. A nil
// Values slice marks the scalar form.
type Field struct {
	Scalar string
	Values []Value
}

// Value is either a scalar string or an ordered sequence of sub-value
// strings. A nil Subs slice marks the scalar form.
type Value struct {
	Scalar string
	Subs   []string
}

// String renders the value in wire form.
func (v Value) String() string {
	if v.Subs == nil {
		return v.Scalar
	}
	return strings.Join(v.Subs, SubvalueMark)
}

// String renders the field in wire form.
func (f Field) String() string {
	if f.Values == nil {
		return f.Scalar
	}
	parts := make([]string, len(f.Values))
	for i, v := range f.Values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ValueMark)
}

// Encode renders the record in wire form. Field, value and sub-value content
// is emitted as-is; content containing mark bytes is not escaped.
func Encode(r Record) string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, FieldMark)
}

// Decode parses a wire string into a record. An empty string decodes to a
// record with no fields. A field containing no value or sub-value marks
// decodes as a scalar, so a single-element value list is indistinguishable
// from a scalar on the wire; List treats the two forms alike. Decode never
// fails and Encode(Decode(s)) == s for every input.
func Decode(s string) Record {
	if s == "" {
		return Record{}
	}
	parts := strings.Split(s, FieldMark)
	fields := make([]Field, len(parts))
	for i, p := range parts {
		fields[i] = decodeField(p)
	}
	return Record{Fields: fields}
}

func decodeField(s string) Field {
	if !strings.ContainsAny(s, ValueMark+SubvalueMark) {
		return Field{Scalar: s}
	}
	parts := strings.Split(s, ValueMark)
	values := make([]Value, len(parts))
	for i, p := range parts {
		if strings.Contains(p, SubvalueMark) {
			values[i] = Value{Subs: strings.Split(p, SubvalueMark)}
		} else {
			values[i] = Value{Scalar: p}
		}
	}
	return Field{Values: values}
}

// Get returns the wire form of the field at position i, or "" when the
// record is shorter than that.
func (r Record) Get(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i].String()
}

// List returns the field at position i as a flat list of value strings. A
// non-empty scalar yields a single-element list; an empty or missing field
// yields nil.
func (r Record) List(i int) []string {
	if i < 0 || i >= len(r.Fields) {
		return nil
	}
	f := r.Fields[i]
	if f.Values == nil {
		if f.Scalar == "" {
			return nil
		}
		return []string{f.Scalar}
	}
	out := make([]string, len(f.Values))
	for j, v := range f.Values {
		out[j] = v.String()
	}
	return out
}

// Set stores a scalar field at position i, growing the record with empty
// fields as needed.
func (r *Record) Set(i int, s string) {
	r.grow(i)
	r.Fields[i] = Field{Scalar: s}
}

// SetList stores a multi-value field at position i. An empty list is stored
// as an empty scalar, matching its wire form.
func (r *Record) SetList(i int, vals []string) {
	r.grow(i)
	if len(vals) == 0 {
		r.Fields[i] = Field{}
		return
	}
	values := make([]Value, len(vals))
	for j, v := range vals {
		values[j] = Value{Scalar: v}
	}
	r.Fields[i] = Field{Values: values}
}

func (r *Record) grow(i int) {
	for len(r.Fields) <= i {
		r.Fields = append(r.Fields, Field{})
	}
}
