// Package scope implements C1: the scoped variable store and permission
// allow-list that is inherited, narrowed and frozen along the intent
// hierarchy.
package scope

import "time"

// ValueKind tags the dynamic type carried by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindBytes
	KindMap
)

// Value is a typed variable stored in a Context. Only the field
// matching Kind is meaningful; this mirrors the teacher's preference
// for tagged variants over untyped interface{} at API boundaries
// (§9 "polymorphism over actions... uses tagged variants").
type Value struct {
	Kind  ValueKind
	Str   string
	Num   float64
	Bool  bool
	Bytes []byte
	Map   map[string]Value
}

func StringValue(s string) Value            { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value           { return Value{Kind: KindNumber, Num: n} }
func BoolValue(b bool) Value                { return Value{Kind: KindBool, Bool: b} }
func BytesValue(b []byte) Value             { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func MapValue(m map[string]Value) Value     { return Value{Kind: KindMap, Map: m} }

// AllowList is the permission envelope of §3: the set of side-effect
// classes a Context's occupant may exercise. Every field is a set;
// membership tests are defined in permission.go.
type AllowList struct {
	Commands     map[string]struct{}
	Paths        []string // path prefixes, longest-match wins
	NetworkHosts []string // suffix patterns, e.g. "api.example.com"
	EnvKeys      map[string]struct{}
}

// NewAllowList returns an empty, non-nil AllowList.
func NewAllowList() AllowList {
	return AllowList{
		Commands: map[string]struct{}{},
		EnvKeys:  map[string]struct{}{},
	}
}

// Clone deep-copies the allow list.
func (a AllowList) Clone() AllowList {
	out := NewAllowList()
	for k := range a.Commands {
		out.Commands[k] = struct{}{}
	}
	for k := range a.EnvKeys {
		out.EnvKeys[k] = struct{}{}
	}
	out.Paths = append(out.Paths, a.Paths...)
	out.NetworkHosts = append(out.NetworkHosts, a.NetworkHosts...)
	return out
}

// Budget bounds the resources a Context's occupant may consume.
type Budget struct {
	MaxBytes        int64
	MaxWallTime     time.Duration
	MaxSubAgents    int
}

// OpKind discriminates the side-effect classes a permission check is
// performed against.
type OpKind int

const (
	OpCommand OpKind = iota
	OpPath
	OpNetworkHost
	OpEnvKey
)

// Decision is the result of a permission check: either allowed, or
// denied with a human-readable reason. Per §4.1, "ambiguity is
// denial" — there is no third outcome.
type Decision struct {
	Allow  bool
	Reason string
}

func Allow() Decision          { return Decision{Allow: true} }
func Deny(reason string) Decision { return Decision{Allow: false, Reason: reason} }
