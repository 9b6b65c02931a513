package ir

import "fmt"

// Instruction is a Value that lives inside a Block.
type Instruction interface {
	Value
	Block() *Block
	Operands() []Value
	IsTerminator() bool
	instruction()
}

type instrBase struct {
	name  string
	block *Block
}

func (i *instrBase) Name() string       { return i.name }
func (i *instrBase) Block() *Block      { return i.block }
func (i *instrBase) IsTerminator() bool { return false }
func (i *instrBase) isValue()           {}
func (i *instrBase) instruction()       {}

// Alloca reserves a stack slot for Elem in the enclosing function's activation.
type Alloca struct {
	instrBase
	Elem Type
	ptr  *PointerType
}

func (a *Alloca) Type() Type        { return a.ptr }
func (a *Alloca) Operands() []Value { return nil }

// Load reads the value stored at Ptr.
type Load struct {
	instrBase
	Ptr Value
}

func (l *Load) Type() Type        { return l.Ptr.Type().(*PointerType).Elem }
func (l *Load) Operands() []Value { return []Value{l.Ptr} }

// Store writes Val to Ptr. It produces no value.
type Store struct {
	instrBase
	Val Value
	Ptr Value
}

func (s *Store) Type() Type        { return Void }
func (s *Store) Operands() []Value { return []Value{s.Val, s.Ptr} }

// BinOp combines two operands of the same type.
type BinOp struct {
	instrBase
	Op Opcode
	X  Value
	Y  Value
}

func (b *BinOp) Type() Type        { return b.X.Type() }
func (b *BinOp) Operands() []Value { return []Value{b.X, b.Y} }

// Call invokes Callee with Args.
type Call struct {
	instrBase
	Callee *Function
	Args   []Value
}

func (c *Call) Type() Type        { return c.Callee.Sig.Return }
func (c *Call) Operands() []Value { return append([]Value{c.Callee}, c.Args...) }

// Ret leaves the function, optionally carrying a value.
type Ret struct {
	instrBase
	Val Value
}

func (r *Ret) Type() Type         { return Void }
func (r *Ret) IsTerminator() bool { return true }

func (r *Ret) Operands() []Value {
	if r.Val == nil {
		return nil
	}
	return []Value{r.Val}
}

// NewAlloca appends a stack slot of type elem to b.
func NewAlloca(elem Type, name string, b *Block) (*Alloca, error) {
	if !IsFirstClass(elem) {
		return nil, fmt.Errorf("%w: cannot allocate storage of type %v", ErrInvalidOperand, elem)
	}
	instr := &Alloca{instrBase: instrBase{name: name, block: b}, Elem: elem, ptr: PointerTo(elem)}
	if err := b.append(instr); err != nil {
		return nil, err
	}
	return instr, nil
}

// NewLoad appends a read of ptr to b.
func NewLoad(ptr Value, name string, b *Block) (*Load, error) {
	if _, err := pointerElem(ptr); err != nil {
		return nil, err
	}
	instr := &Load{instrBase: instrBase{name: name, block: b}, Ptr: ptr}
	if err := b.append(instr); err != nil {
		return nil, err
	}
	return instr, nil
}

// NewStore appends a write of val into ptr to b.
func NewStore(val, ptr Value, b *Block) (*Store, error) {
	elem, err := pointerElem(ptr)
	if err != nil {
		return nil, err
	}
	if err := checkOperand(val); err != nil {
		return nil, err
	}
	if !val.Type().Equal(elem) {
		return nil, fmt.Errorf("%w: cannot store %s into %s", ErrTypeMismatch, val.Type(), ptr.Type())
	}
	instr := &Store{instrBase: instrBase{block: b}, Val: val, Ptr: ptr}
	if err := b.append(instr); err != nil {
		return nil, err
	}
	return instr, nil
}

// NewBinOp appends an arithmetic instruction to b.
func NewBinOp(op Opcode, x, y Value, name string, b *Block) (*BinOp, error) {
	if err := checkOperand(x); err != nil {
		return nil, err
	}
	if err := checkOperand(y); err != nil {
		return nil, err
	}
	if !x.Type().Equal(y.Type()) {
		return nil, fmt.Errorf("%w: %s operands %s and %s", ErrTypeMismatch, op, x.Type(), y.Type())
	}
	want := I64
	if op.IsFloat() {
		want = Double
	}
	if !x.Type().Equal(want) {
		return nil, fmt.Errorf("%w: %s requires %s operands, got %s", ErrTypeMismatch, op, want, x.Type())
	}
	instr := &BinOp{instrBase: instrBase{name: name, block: b}, Op: op, X: x, Y: y}
	if err := b.append(instr); err != nil {
		return nil, err
	}
	return instr, nil
}

// NewCall appends a call to callee to b.
func NewCall(callee *Function, args []Value, name string, b *Block) (*Call, error) {
	if callee == nil {
		return nil, fmt.Errorf("%w: call to nil function", ErrInvalidOperand)
	}
	if len(args) != len(callee.Sig.Params) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArity, callee.Name(), len(callee.Sig.Params), len(args))
	}
	for i, arg := range args {
		if err := checkOperand(arg); err != nil {
			return nil, err
		}
		if !arg.Type().Equal(callee.Sig.Params[i]) {
			return nil, fmt.Errorf("%w: argument %d of %s is %s, expected %s", ErrTypeMismatch, i, callee.Name(), arg.Type(), callee.Sig.Params[i])
		}
	}
	copied := append([]Value(nil), args...)
	instr := &Call{instrBase: instrBase{name: name, block: b}, Callee: callee, Args: copied}
	if err := b.append(instr); err != nil {
		return nil, err
	}
	return instr, nil
}

// NewRet terminates b. A nil val returns void.
func NewRet(val Value, b *Block) (*Ret, error) {
	if b == nil || b.parent == nil {
		return nil, fmt.Errorf("%w: ret outside a function", ErrInvalidOperand)
	}
	want := b.parent.Sig.Return
	switch {
	case val == nil && want.Kind() != KindVoid:
		return nil, fmt.Errorf("%w: %s must return %s", ErrTypeMismatch, b.parent.Name(), want)
	case val != nil && !val.Type().Equal(want):
		return nil, fmt.Errorf("%w: %s returns %s, got %s", ErrTypeMismatch, b.parent.Name(), want, val.Type())
	}
	instr := &Ret{instrBase: instrBase{block: b}, Val: val}
	if err := b.append(instr); err != nil {
		return nil, err
	}
	return instr, nil
}

func checkOperand(v Value) error {
	if v == nil {
		return fmt.Errorf("%w: missing operand", ErrInvalidOperand)
	}
	if !IsFirstClass(v.Type()) {
		return fmt.Errorf("%w: operand of type %s", ErrInvalidOperand, v.Type())
	}
	return nil
}

func pointerElem(ptr Value) (Type, error) {
	if ptr == nil {
		return nil, fmt.Errorf("%w: missing pointer operand", ErrInvalidOperand)
	}
	pt, ok := ptr.Type().(*PointerType)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a pointer", ErrInvalidOperand, ptr.Type())
	}
	return pt.Elem, nil
}
