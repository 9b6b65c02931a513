package ir

import (
	"fmt"
	"strings"
)

// TypeKind identifies the IR type category.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindDouble
	KindPointer
	KindFunction
)

// Type is the shared behaviour for all IR types.
type Type interface {
	Kind() TypeKind
	String() string
	Equal(other Type) bool
}

type primitiveType struct {
	kind TypeKind
	name string
}

func (p *primitiveType) Kind() TypeKind { return p.kind }
func (p *primitiveType) String() string { return p.name }

func (p *primitiveType) Equal(other Type) bool {
	return other != nil && other.Kind() == p.kind
}

var (
	Void   Type = &primitiveType{kind: KindVoid, name: "void"}
	I64    Type = &primitiveType{kind: KindInt, name: "i64"}
	Double Type = &primitiveType{kind: KindDouble, name: "double"}
)

// PointerType is the type of storage slots produced by alloca and globals.
type PointerType struct {
	Elem Type
}

func PointerTo(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

func (p *PointerType) Kind() TypeKind { return KindPointer }
func (p *PointerType) String() string { return p.Elem.String() + "*" }

func (p *PointerType) Equal(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && p.Elem.Equal(o.Elem)
}

// FunctionType describes a callable signature.
type FunctionType struct {
	Return Type
	Params []Type
}

func FuncType(ret Type, params ...Type) *FunctionType {
	return &FunctionType{Return: ret, Params: params}
}

func (f *FunctionType) Kind() TypeKind { return KindFunction }

func (f *FunctionType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s (%s)", f.Return, strings.Join(parts, ", "))
}

func (f *FunctionType) Equal(other Type) bool {
	o, ok := other.(*FunctionType)
	if !ok || !f.Return.Equal(o.Return) || len(f.Params) != len(o.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

// IsFirstClass reports whether values of t can live in registers and storage.
func IsFirstClass(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindInt, KindDouble:
		return true
	default:
		return false
	}
}
