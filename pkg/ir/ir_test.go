package ir

import (
	"errors"
	"strings"
	"testing"
)

func buildAdd(t *testing.T) (*Module, *Function) {
	t.Helper()
	m := NewModule("main")
	fn, err := m.NewFunction("add", FuncType(I64, I64, I64))
	if err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	fn.Params[0].SetName("a")
	fn.Params[1].SetName("b")
	entry := fn.NewBlock("entry")
	slot, err := NewAlloca(I64, "a", entry)
	if err != nil {
		t.Fatalf("NewAlloca: %v", err)
	}
	if _, err := NewStore(fn.Params[0], slot, entry); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	loaded, err := NewLoad(slot, "", entry)
	if err != nil {
		t.Fatalf("NewLoad: %v", err)
	}
	sum, err := NewBinOp(OpAdd, loaded, fn.Params[1], "", entry)
	if err != nil {
		t.Fatalf("NewBinOp: %v", err)
	}
	if _, err := NewRet(sum, entry); err != nil {
		t.Fatalf("NewRet: %v", err)
	}
	return m, fn
}

func TestFormatFunction(t *testing.T) {
	m, _ := buildAdd(t)
	if err := Verify(m); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got := Format(m)
	for _, want := range []string{
		"define i64 @add(i64 %a, i64 %b) {",
		"%a1 = alloca i64",
		"store i64 %a, i64* %a1",
		"%0 = load i64, i64* %a1",
		"%1 = add i64 %0, %b",
		"ret i64 %1",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("formatted module missing %q:\n%s", want, got)
		}
	}
}

func TestBinOpRejectsMixedTypes(t *testing.T) {
	m := NewModule("main")
	fn, _ := m.NewFunction("f", FuncType(Void))
	entry := fn.NewBlock("entry")
	_, err := NewBinOp(OpAdd, NewConstInt(1), NewConstFloat(2), "", entry)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	_, err = NewBinOp(OpFAdd, NewConstInt(1), NewConstInt(2), "", entry)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for fadd on ints, got %v", err)
	}
	if len(entry.Instrs) != 0 {
		t.Fatalf("rejected instructions must not be appended")
	}
}

func TestCallChecksArity(t *testing.T) {
	m, add := buildAdd(t)
	caller, _ := m.NewFunction("main", FuncType(I64))
	entry := caller.NewBlock("entry")
	if _, err := NewCall(add, []Value{NewConstInt(1)}, "", entry); !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
	if _, err := NewCall(add, []Value{NewConstInt(1), NewConstFloat(1)}, "", entry); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	call, err := NewCall(add, []Value{NewConstInt(1), NewConstInt(2)}, "", entry)
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}
	if !call.Type().Equal(I64) {
		t.Fatalf("call type = %s", call.Type())
	}
}

func TestRetTerminatesBlock(t *testing.T) {
	m := NewModule("main")
	fn, _ := m.NewFunction("main", FuncType(Void))
	entry := fn.NewBlock("entry")
	if _, err := NewRet(NewConstInt(1), entry); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for value in void function, got %v", err)
	}
	if _, err := NewRet(nil, entry); err != nil {
		t.Fatalf("NewRet: %v", err)
	}
	if _, err := NewAlloca(I64, "x", entry); !errors.Is(err, ErrBlockTerminated) {
		t.Fatalf("expected ErrBlockTerminated, got %v", err)
	}
}

func TestDuplicateSymbols(t *testing.T) {
	m := NewModule("main")
	if _, err := m.NewFunction("f", FuncType(Void)); err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	if _, err := m.NewFunction("f", FuncType(Void)); !errors.Is(err, ErrDuplicateSymbol) {
		t.Fatalf("expected ErrDuplicateSymbol, got %v", err)
	}
	if _, err := m.NewGlobal("g", Double); err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}
	if _, err := m.NewGlobal("g", Double); !errors.Is(err, ErrDuplicateSymbol) {
		t.Fatalf("expected ErrDuplicateSymbol, got %v", err)
	}
	if !strings.Contains(Format(m), "@g = global double 0e+00") {
		t.Fatalf("global not formatted:\n%s", Format(m))
	}
}

func TestVerifyReportsMissingTerminator(t *testing.T) {
	m := NewModule("main")
	fn, _ := m.NewFunction("main", FuncType(Void))
	fn.NewBlock("entry")
	err := Verify(m)
	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerifyError, got %v", err)
	}
	if len(verr.Issues) != 1 || !strings.Contains(verr.Issues[0], "missing terminator") {
		t.Fatalf("unexpected issues: %v", verr.Issues)
	}
}

func TestVerifyRejectsForeignOperands(t *testing.T) {
	m, add := buildAdd(t)
	other, _ := m.NewFunction("other", FuncType(I64))
	entry := other.NewBlock("entry")
	if _, err := NewRet(add.Params[0], entry); err != nil {
		t.Fatalf("NewRet: %v", err)
	}
	err := Verify(m)
	if err == nil || !strings.Contains(err.Error(), "parameter a belongs to add") {
		t.Fatalf("expected foreign parameter issue, got %v", err)
	}
}

func TestTypeEquality(t *testing.T) {
	if !PointerTo(I64).Equal(PointerTo(I64)) {
		t.Fatalf("pointer types with equal elements must be equal")
	}
	if PointerTo(I64).Equal(PointerTo(Double)) {
		t.Fatalf("pointer types with different elements must differ")
	}
	if !FuncType(I64, Double).Equal(FuncType(I64, Double)) {
		t.Fatalf("function types must compare structurally")
	}
	if FuncType(I64).String() != "i64 ()" {
		t.Fatalf("unexpected function type string %q", FuncType(I64).String())
	}
}
