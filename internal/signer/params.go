package signer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/math"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindText Kind = iota
	KindBool
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	default:
		return "text"
	}
}

// Value is a single action parameter: exactly one of Bool, Integer or Text.
// The zero Value is the empty text.
type Value struct {
	kind Kind
	b    bool
	i    *big.Int
	s    string
}

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

func Int(v int64) Value { return Value{kind: KindInteger, i: big.NewInt(v)} }

// BigInt copies v; a nil v is treated as zero.
func BigInt(v *big.Int) Value {
	if v == nil {
		return Value{kind: KindInteger, i: new(big.Int)}
	}
	return Value{kind: KindInteger, i: new(big.Int).Set(v)}
}

func Text(v string) Value { return Value{kind: KindText, s: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsInteger returns a copy so callers cannot mutate the parameter.
func (v Value) AsInteger() (*big.Int, bool) {
	if v.kind != KindInteger {
		return nil, false
	}
	return new(big.Int).Set(v.i), true
}

// String renders the value the way it travels in a form-encoded request.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInteger:
		return v.i.String()
	default:
		return v.s
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInteger:
		return v.i.Cmp(o.i) == 0
	default:
		return v.s == o.s
	}
}

// typedDataValue is the representation go-ethereum's encoder accepts for the
// value's inferred type.
func (v Value) typedDataValue() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInteger:
		return (*math.HexOrDecimal256)(new(big.Int).Set(v.i))
	default:
		return v.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInteger:
		return []byte(v.i.String()), nil
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON maps JSON booleans to Bool, integral numbers to Integer and
// strings to Text. Fractional numbers, null, arrays and objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case bool:
		*v = Bool(t)
	case string:
		*v = Text(t)
	case json.Number:
		n, ok := new(big.Int).SetString(t.String(), 10)
		if !ok {
			return fmt.Errorf("parameter %s is not an integer", t)
		}
		*v = Value{kind: KindInteger, i: n}
	default:
		return fmt.Errorf("unsupported parameter value %s", string(data))
	}
	return nil
}

// Params is an insertion-ordered mapping of field name to Value. Iteration
// order is the order keys were first set; replacing a value keeps its slot.
type Params struct {
	keys   []string
	values map[string]Value
}

func NewParams() *Params {
	return &Params{values: make(map[string]Value)}
}

// Set appends key, or replaces its value in place when already present.
func (p *Params) Set(key string, v Value) *Params {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
	return p
}

func (p *Params) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Each visits entries in insertion order.
func (p *Params) Each(fn func(key string, v Value)) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		fn(k, p.values[k])
	}
}

// Rename moves the value stored under from to to, keeping its position.
// When to already exists elsewhere that entry is dropped. Returns false when
// from is absent.
func (p *Params) Rename(from, to string) bool {
	v, ok := p.values[from]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	if _, clash := p.values[to]; clash {
		p.remove(to)
	}
	for i, k := range p.keys {
		if k == from {
			p.keys[i] = to
			break
		}
	}
	delete(p.values, from)
	p.values[to] = v
	return true
}

func (p *Params) remove(key string) {
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	delete(p.values, key)
}

// Clone returns an independent deep copy.
func (p *Params) Clone() *Params {
	out := NewParams()
	p.Each(func(k string, v Value) {
		if v.kind == KindInteger {
			v = BigInt(v.i)
		}
		out.Set(k, v)
	})
	return out
}

// Equal reports whether both hold the same entries in the same order.
func (p *Params) Equal(o *Params) bool {
	if p.Len() != o.Len() {
		return false
	}
	for i, k := range p.keys {
		if o.keys[i] != k || !p.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}

func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := p.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the JSON object.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("params must be a JSON object")
	}
	out := NewParams()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid params key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = *out
	return nil
}

// CanonicalName upper-cases the first character of key. Keys that do not
// start with a letter come back unchanged.
func CanonicalName(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return key
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return key
	}
	return string(upper) + key[size:]
}

// Canonicalize returns a copy of params with every key passed through
// CanonicalName. Key names are not validated.
func Canonicalize(params *Params) *Params {
	out := NewParams()
	params.Each(func(k string, v Value) {
		out.Set(CanonicalName(k), v)
	})
	return out.Clone()
}

// InferType maps a value to its EIP-712 primitive type. Address-like text is
// typed as string because that is what the verifying side hashes.
func InferType(v Value) string {
	switch v.Kind() {
	case KindBool:
		return "bool"
	case KindInteger:
		return "uint256"
	case KindText:
		return "string"
	}
	return "string"
}
