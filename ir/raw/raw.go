// Package raw is the low-level PDF object graph: primitive objects,
// indirect references and a registry that owns every indirect object of a
// document under construction.
package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// IsZero reports whether r was never assigned.
func (r ObjectRef) IsZero() bool { return r.Num == 0 }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
}

// Name object
type NameObj struct{ Val string }

func (n NameObj) Type() string  { return "name" }
func (n NameObj) Value() string { return n.Val }

// Number object
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

// Boolean object
type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }

// Null object
type NullObj struct{}

func (NullObj) Type() string { return "null" }

// String object; Hex selects the <...> form on output.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string { return "string" }

// Array object
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) Len() int         { return len(a.Items) }
func (a *ArrayObj) Append(o Object)  { a.Items = append(a.Items, o) }
func (a *ArrayObj) Get(i int) Object { return a.Items[i] }

// Dictionary object. Keys are written in sorted order.
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }

func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}

func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

func (d *DictObj) Delete(key string) { delete(d.KV, key) }

func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *DictObj) Len() int { return len(d.KV) }

// Dict returns the dictionary stored under key, creating it when absent.
func (d *DictObj) Dict(key string) *DictObj {
	if o, ok := d.KV[key]; ok {
		if sub, ok := o.(*DictObj); ok {
			return sub
		}
	}
	sub := Dict()
	d.Set(key, sub)
	return sub
}

// Stream object. Length is filled in by the serializer.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string { return "stream" }

// Reference object
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string { return "ref" }

// Helpers
func Name(v string) NameObj                           { return NameObj{Val: v} }
func Int(i int64) NumberObj                           { return NumberObj{I: i, IsInt: true} }
func Real(f float64) NumberObj                        { return NumberObj{F: f} }
func Bool(v bool) BoolObj                             { return BoolObj{V: v} }
func Str(s string) StringObj                          { return StringObj{Bytes: []byte(s)} }
func HexStr(b []byte) StringObj                       { return StringObj{Bytes: b, Hex: true} }
func NewArray(items ...Object) *ArrayObj              { return &ArrayObj{Items: items} }
func Dict() *DictObj                                  { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj { return &StreamObj{Dict: dict, Data: data} }
func Ref(r ObjectRef) RefObj                          { return RefObj{R: r} }
func Null() NullObj                                   { return NullObj{} }

// Reals builds an array of real numbers.
func Reals(vals ...float64) *ArrayObj {
	arr := &ArrayObj{Items: make([]Object, 0, len(vals))}
	for _, v := range vals {
		arr.Items = append(arr.Items, Real(v))
	}
	return arr
}

// DictOf builds a dictionary from alternating key/value pairs.
func DictOf(pairs ...any) *DictObj {
	d := Dict()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(Object))
	}
	return d
}
