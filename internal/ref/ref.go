package ref

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericRe  = regexp.MustCompile(`^\d+$`)
	trailingRe = regexp.MustCompile(`/(\d+)/?$`)
)

// Kind tags the shape a reference arrived in.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindNumericString
	KindPath
	KindWrapped
	KindIRIObject
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindNumericString:
		return "numeric-string"
	case KindPath:
		return "path"
	case KindWrapped:
		return "wrapped"
	case KindIRIObject:
		return "iri-object"
	default:
		return "opaque"
	}
}

// Identifiable is implemented by entities that can describe their own reference.
type Identifiable interface {
	Reference() Ref
}

// Ref is an entity reference in any of the shapes the remote API emits:
// integer, numeric string, "/resource/{id}" path, an object carrying "id",
// or an object carrying "@id". The original value is kept so a Ref
// marshals back to exactly what was received.
type Ref struct {
	kind Kind
	id   int64
	ok   bool
	raw  any
}

// Int builds an integer reference.
func Int(id int64) Ref {
	return Ref{kind: KindInteger, id: id, ok: true, raw: id}
}

// Path renders the canonical path reference "/{resource}/{id}".
func Path(resource string, id int64) string {
	return "/" + strings.Trim(resource, "/") + "/" + strconv.FormatInt(id, 10)
}

// Resolve extracts the numeric identity of any supported reference shape.
// It never panics; unresolvable input yields (0, false).
func Resolve(v any) (int64, bool) {
	return FromAny(v).ID()
}

// Same reports whether a and b resolve to the same identity.
func Same(a, b any) bool {
	x, okA := Resolve(a)
	y, okB := Resolve(b)
	return okA && okB && x == y
}

// FromAny classifies a decoded JSON value (or a typed entity) into a Ref.
func FromAny(v any) Ref {
	switch x := v.(type) {
	case nil:
		return Ref{}
	case Ref:
		return x
	case *Ref:
		if x == nil {
			return Ref{}
		}
		return *x
	case Identifiable:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Ref{}
		}
		return x.Reference()
	case int:
		return Ref{kind: KindInteger, id: int64(x), ok: true, raw: x}
	case int32:
		return Ref{kind: KindInteger, id: int64(x), ok: true, raw: x}
	case int64:
		return Ref{kind: KindInteger, id: x, ok: true, raw: x}
	case uint32:
		return Ref{kind: KindInteger, id: int64(x), ok: true, raw: x}
	case float32:
		return fromFloat(float64(x), x)
	case float64:
		return fromFloat(x, x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Ref{kind: KindInteger, id: n, ok: true, raw: x}
		}
		if f, err := x.Float64(); err == nil {
			return fromFloat(f, x)
		}
		return Ref{kind: KindOpaque, raw: x}
	case string:
		return fromString(x)
	case map[string]any:
		return fromObject(x)
	default:
		return Ref{kind: KindOpaque, raw: v}
	}
}

func fromFloat(f float64, raw any) Ref {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return Ref{kind: KindOpaque, raw: raw}
	}
	return Ref{kind: KindInteger, id: int64(f), ok: true, raw: raw}
}

func fromString(s string) Ref {
	t := strings.TrimSpace(s)
	if numericRe.MatchString(t) {
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return Ref{kind: KindNumericString, id: n, ok: true, raw: s}
		}
		return Ref{kind: KindOpaque, raw: s}
	}
	if m := trailingRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return Ref{kind: KindPath, id: n, ok: true, raw: s}
		}
	}
	return Ref{kind: KindOpaque, raw: s}
}

func fromObject(m map[string]any) Ref {
	if v, present := m["id"]; present && v != nil {
		inner := FromAny(v)
		if inner.ok {
			return Ref{kind: KindWrapped, id: inner.id, ok: true, raw: m}
		}
	}
	if iri, isString := m["@id"].(string); isString {
		inner := fromString(iri)
		if inner.ok {
			return Ref{kind: KindIRIObject, id: inner.id, ok: true, raw: m}
		}
	}
	return Ref{kind: KindOpaque, raw: m}
}

// ID returns the resolved identity.
func (r Ref) ID() (int64, bool) {
	return r.id, r.ok
}

// Kind returns the shape the reference arrived in.
func (r Ref) Kind() Kind {
	return r.kind
}

// Raw returns the value the reference was built from.
func (r Ref) Raw() any {
	return r.raw
}

// IsZero reports whether the reference is absent.
func (r Ref) IsZero() bool {
	return r.kind == KindNull
}

// Text returns the raw value when it is a string, e.g. "local-7-55" or "/queues/3".
func (r Ref) Text() string {
	if s, ok := r.raw.(string); ok {
		return s
	}
	return ""
}

func (r Ref) String() string {
	if r.ok {
		return strconv.FormatInt(r.id, 10)
	}
	if s := r.Text(); s != "" {
		return s
	}
	return ""
}

// MarshalJSON emits the original value.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.raw)
}

// UnmarshalJSON accepts any JSON value; unresolvable input is kept as opaque.
func (r *Ref) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*r = FromAny(v)
	return nil
}
