package resolver

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/fluent/qp"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
)

// keyPrefix is the CID prefix used to build a Key from the DAG-CBOR encoding
// of resolved parameters.
var keyPrefix = cid.Prefix{
	Version:  1,
	Codec:    uint64(multicodec.DagCbor),
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// Key identifies one resolution outcome of a parameter set. Keys are
// comparable, so they can be used directly as map keys. Two Params with the
// same names and values always produce equal Keys.
type Key struct {
	c cid.Cid
}

// Cid returns the content identifier of the encoded parameters.
func (k Key) Cid() cid.Cid {
	return k.c
}

// Undef returns true if the Key was not produced from a parameter set.
func (k Key) Undef() bool {
	return k.c == cid.Undef
}

func (k Key) String() string {
	if k.Undef() {
		return "<undef>"
	}
	return k.c.String()
}

// Params is an immutable set of named parameter values produced by one
// resolution. Values are copied shallowly; callers must not modify slices or
// maps after handing them to NewParams.
type Params struct {
	names  []string
	values map[string]any
}

// NewParams creates a Params from the given values.
func NewParams(values map[string]any) Params {
	names := make([]string, 0, len(values))
	vals := make(map[string]any, len(values))
	for name, v := range values {
		names = append(names, name)
		vals[name] = v
	}
	sort.Strings(names)
	return Params{
		names:  names,
		values: vals,
	}
}

// Get returns the value of the named parameter.
func (p Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, len(p.names))
	copy(names, p.names)
	return names
}

func (p Params) Len() int {
	return len(p.names)
}

// Key computes the Key for this parameter set. The parameters are encoded as
// a DAG-CBOR map with sorted keys, and the key is the CID of that encoding.
func (p Params) Key() (Key, error) {
	asm, err := mapAssembler(p.names, p.values)
	if err != nil {
		return Key{}, err
	}
	node, err := qp.BuildMap(basicnode.Prototype.Any, int64(len(p.names)), asm)
	if err != nil {
		return Key{}, fmt.Errorf("cannot build parameter node: %w", err)
	}
	var buf bytes.Buffer
	if err = dagcbor.Encode(node, &buf); err != nil {
		return Key{}, fmt.Errorf("cannot encode parameters: %w", err)
	}
	c, err := keyPrefix.Sum(buf.Bytes())
	if err != nil {
		return Key{}, err
	}
	return Key{c: c}, nil
}

func mapAssembler(names []string, values map[string]any) (func(datamodel.MapAssembler), error) {
	entries := make([]qp.Assemble, len(names))
	for i, name := range names {
		a, err := assembler(values[name])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		entries[i] = a
	}
	return func(ma datamodel.MapAssembler) {
		for i, name := range names {
			qp.MapEntry(ma, name, entries[i])
		}
	}, nil
}

// assembler returns the qp.Assemble for a single parameter value. Values are
// checked here so that building the node never fails on an unsupported kind.
func assembler(v any) (qp.Assemble, error) {
	switch val := v.(type) {
	case nil:
		return qp.Null(), nil
	case string:
		return qp.String(val), nil
	case bool:
		return qp.Bool(val), nil
	case []byte:
		return qp.Bytes(val), nil
	case float32:
		return floatAssembler(float64(val))
	case float64:
		return floatAssembler(val)
	case fmt.Stringer:
		return qp.String(val.String()), nil
	case []any:
		items := make([]qp.Assemble, len(val))
		for i := range val {
			a, err := assembler(val[i])
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = a
		}
		return qp.List(int64(len(items)), func(la datamodel.ListAssembler) {
			for _, a := range items {
				qp.ListEntry(la, a)
			}
		}), nil
	case map[string]any:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		asm, err := mapAssembler(names, val)
		if err != nil {
			return nil, err
		}
		return qp.Map(int64(len(names)), asm), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return qp.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return qp.Int(int64(u)), nil
	case reflect.String:
		return qp.String(rv.String()), nil
	case reflect.Bool:
		return qp.Bool(rv.Bool()), nil
	case reflect.Float32, reflect.Float64:
		return floatAssembler(rv.Float())
	}
	return nil, fmt.Errorf("unsupported parameter type %T", v)
}

// floatAssembler encodes f so that floats equal under == get the same Key.
// NaN equals nothing and infinities have no DAG-CBOR encoding, so both are
// rejected.
func floatAssembler(f float64) (qp.Assemble, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("float value %v is not finite", f)
	}
	if f == 0 {
		// Drop the sign of negative zero.
		f = 0
	}
	return qp.Float(f), nil
}
