package tagstore

import (
	"slices"
	"strconv"
	"strings"
)

// Kind names which variant a Param holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "none"
	}
}

// Param is a feature parameter: exactly one of a boolean, an integer, a
// string, or a list of strings. The zero Param holds nothing.
type Param struct {
	kind Kind
	b    bool
	i    int
	s    string
	list []string
}

// Bool returns a boolean parameter.
func Bool(v bool) Param { return Param{kind: KindBool, b: v} }

// Int returns an integer parameter.
func Int(v int) Param { return Param{kind: KindInt, i: v} }

// String returns a string parameter.
func String(v string) Param { return Param{kind: KindString, s: v} }

// List returns a list parameter holding a copy of v.
func List(v []string) Param { return Param{kind: KindList, list: slices.Clone(v)} }

// Kind reports the held variant.
func (p Param) Kind() Kind { return p.kind }

// AsBool returns the boolean and whether p holds one.
func (p Param) AsBool() (bool, bool) { return p.b, p.kind == KindBool }

// AsInt returns the integer and whether p holds one.
func (p Param) AsInt() (int, bool) { return p.i, p.kind == KindInt }

// AsString returns the string and whether p holds one.
func (p Param) AsString() (string, bool) { return p.s, p.kind == KindString }

// AsList returns a copy of the list and whether p holds one.
func (p Param) AsList() ([]string, bool) {
	if p.kind != KindList {
		return nil, false
	}
	return slices.Clone(p.list), true
}

// Equal reports whether both params hold the same variant and value.
func (p Param) Equal(other Param) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case KindBool:
		return p.b == other.b
	case KindInt:
		return p.i == other.i
	case KindString:
		return p.s == other.s
	case KindList:
		return slices.Equal(p.list, other.list)
	default:
		return true
	}
}

func (p Param) String() string {
	switch p.kind {
	case KindBool:
		return strconv.FormatBool(p.b)
	case KindInt:
		return strconv.Itoa(p.i)
	case KindString:
		return strconv.Quote(p.s)
	case KindList:
		return "[" + strings.Join(p.list, ", ") + "]"
	default:
		return "<none>"
	}
}

// Value returns the held value as a plain Go value for encoding.
func (p Param) Value() any {
	switch p.kind {
	case KindBool:
		return p.b
	case KindInt:
		return p.i
	case KindString:
		return p.s
	case KindList:
		return slices.Clone(p.list)
	default:
		return nil
	}
}
