package jit

import (
	"fmt"
	"strconv"

	"github.com/NewProggie/Toco/pkg/ir"
)

// GenericValue carries a function result or argument across the engine boundary.
// Type is ir.Void for functions that return nothing.
type GenericValue struct {
	Type  ir.Type
	Int   int64
	Float float64
}

func IntValue(v int64) GenericValue {
	return GenericValue{Type: ir.I64, Int: v}
}

func FloatValue(v float64) GenericValue {
	return GenericValue{Type: ir.Double, Float: v}
}

func VoidValue() GenericValue {
	return GenericValue{Type: ir.Void}
}

// IsVoid reports whether the value carries nothing.
func (g GenericValue) IsVoid() bool {
	return g.Type == nil || g.Type.Kind() == ir.KindVoid
}

func (g GenericValue) String() string {
	if g.IsVoid() {
		return "void"
	}
	switch g.Type.Kind() {
	case ir.KindInt:
		return strconv.FormatInt(g.Int, 10)
	case ir.KindDouble:
		return strconv.FormatFloat(g.Float, 'g', -1, 64)
	default:
		return fmt.Sprintf("<%s>", g.Type)
	}
}

// cell is one register or storage slot.
type cell struct {
	i int64
	f float64
}

func cellFromGeneric(g GenericValue) cell {
	return cell{i: g.Int, f: g.Float}
}

func genericFromCell(t ir.Type, c cell) GenericValue {
	switch t.Kind() {
	case ir.KindInt:
		return GenericValue{Type: t, Int: c.i}
	case ir.KindDouble:
		return GenericValue{Type: t, Float: c.f}
	default:
		return GenericValue{Type: ir.Void}
	}
}
